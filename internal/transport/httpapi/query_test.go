package httpapi

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/webshop/internal/domain"
)

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]string
	}{
		{name: "empty", raw: "", want: map[string]string{}},
		{name: "pairs", raw: "client_id=1&article_id_1=2", want: map[string]string{"client_id": "1", "article_id_1": "2"}},
		{name: "missing equals", raw: "client_id&amount_1=3", want: map[string]string{"client_id": "", "amount_1": "3"}},
		{name: "split on first equals", raw: "note=a=b", want: map[string]string{"note": "a=b"}},
		{name: "last value wins", raw: "client_id=1&client_id=2", want: map[string]string{"client_id": "2"}},
		{name: "escaped", raw: "name=Anna%20Huber&bad=%zz", want: map[string]string{"name": "Anna Huber", "bad": "%zz"}},
		{name: "empty segments", raw: "&&client_id=1&", want: map[string]string{"client_id": "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ParseQuery(tt.raw))
		})
	}
}

func TestParsePlaceOrderRequest(t *testing.T) {
	req, err := ParsePlaceOrderRequest(ParseQuery("client_id=1&article_id_1=2&amount_1=3&article_id_2=4&amount_2=1"))
	require.NoError(t, err)
	require.Equal(t, domain.PlaceOrderRequest{
		ClientID: 1,
		Lines: []domain.LineRequest{
			{ArticleID: 2, Amount: 3},
			{ArticleID: 4, Amount: 1},
		},
	}, req)
}

func TestParsePlaceOrderRequest_StopsAtFirstGap(t *testing.T) {
	req, err := ParsePlaceOrderRequest(ParseQuery("client_id=1&article_id_1=2&amount_1=3&article_id_3=4&amount_3=1"))
	require.NoError(t, err)
	require.Len(t, req.Lines, 1)
}

func TestParsePlaceOrderRequest_Errors(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		param string
	}{
		{name: "missing client", raw: "article_id_1=1&amount_1=1", param: "client_id"},
		{name: "client without value", raw: "client_id&article_id_1=1&amount_1=1", param: "client_id"},
		{name: "non numeric article", raw: "client_id=1&article_id_1=abc&amount_1=1", param: "article_id_1"},
		{name: "missing amount", raw: "client_id=1&article_id_1=1", param: "amount_1"},
		{name: "non numeric second amount", raw: "client_id=1&article_id_1=1&amount_1=1&article_id_2=2&amount_2=x", param: "amount_2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePlaceOrderRequest(ParseQuery(tt.raw))
			require.ErrorIs(t, err, domain.ErrInvalidParameter)

			var paramErr *domain.ParameterError
			require.ErrorAs(t, err, &paramErr)
			require.Equal(t, tt.param, paramErr.Name)
		})
	}
}
