package memory

import "github.com/vladislavdragonenkov/webshop/internal/domain"

// DemoArticles совпадает с данными миграции 0002_seed_demo_data.
func DemoArticles() []domain.Article {
	return []domain.Article{
		{ID: 1, Description: "Bleistift", Price: 1, Amount: 100},
		{ID: 2, Description: "Kugelschreiber", Price: 3, Amount: 50},
		{ID: 3, Description: "Radiergummi", Price: 2, Amount: 40},
		{ID: 4, Description: "Lineal 30cm", Price: 4, Amount: 25},
		{ID: 5, Description: "Collegeblock A4", Price: 5, Amount: 10},
	}
}

// DemoClients совпадает с данными миграции 0002_seed_demo_data.
func DemoClients() []domain.Client {
	return []domain.Client{
		{ID: 1, Name: "Anna Huber", Address: "Wexstrasse 19-23", City: "Wien", Country: "Austria"},
		{ID: 2, Name: "Lukas Gruber", Address: "Hauptplatz 4", City: "Graz", Country: "Austria"},
		{ID: 3, Name: "Sophie Wagner", Address: "Landstrasse 12", City: "Linz", Country: "Austria"},
	}
}

// NewSeededShopRepository создаёт хранилище с демонстрационными данными.
func NewSeededShopRepository(outbox *OutboxRepository) *ShopRepository {
	repo := NewShopRepository(outbox)
	for _, article := range DemoArticles() {
		repo.AddArticle(article)
	}
	for _, client := range DemoClients() {
		repo.AddClient(client)
	}
	return repo
}
