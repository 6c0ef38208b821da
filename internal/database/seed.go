package database

import (
	"fmt"
	"time"

	"panpos/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Seed loads the initial catalog, client route and settings on an empty
// database. It is a no-op once any product exists, so restarting the server
// never clobbers live data.
func Seed(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.Product{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check for existing products: %w", err)
	}
	if count > 0 {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(seedProducts()).Error; err != nil {
			return fmt.Errorf("failed to seed products: %w", err)
		}
		if err := tx.Create(seedClients()).Error; err != nil {
			return fmt.Errorf("failed to seed clients: %w", err)
		}
		if err := tx.Create(seedSales()).Error; err != nil {
			return fmt.Errorf("failed to seed sales: %w", err)
		}
		settings := &model.AppSettings{
			ID:           1,
			ExchangeRate: dec("46.0"),
			BusinessName: "Panadería - Distribuidor Mayorista",
		}
		if err := tx.Create(settings).Error; err != nil {
			return fmt.Errorf("failed to seed settings: %w", err)
		}
		return nil
	})
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// seedProducts returns the opening catalog. Stock already reflects the seeded
// dispatch sales below.
func seedProducts() []model.Product {
	return []model.Product{
		{ID: "1", Name: "Pan Francés", Category: "Panadería Salada", Cost: dec("0.10"), PriceRetail: dec("1.00"), PriceWholesale: dec("1.00"), Stock: 556},
		{ID: "2", Name: "Pan Canilla", Category: "Panadería Salada", Cost: dec("0.20"), PriceRetail: dec("1.00"), PriceWholesale: dec("1.00"), Stock: 395},
		{ID: "3", Name: "Pan Campesino", Category: "Panadería Salada", Cost: dec("0.50"), PriceRetail: dec("1.00"), PriceWholesale: dec("1.00"), Stock: 36},
		{ID: "4", Name: "Pan Sobado", Category: "Panadería Salada", Cost: dec("0.40"), PriceRetail: dec("1.00"), PriceWholesale: dec("0.75"), Stock: 120},
		{ID: "5", Name: "Pan de Guayaba", Category: "Panadería Dulce", Cost: dec("0.70"), PriceRetail: dec("1.50"), PriceWholesale: dec("1.50"), Stock: 67},
		{ID: "6", Name: "Pan de Queso", Category: "Panadería Dulce", Cost: dec("0.90"), PriceRetail: dec("2.00"), PriceWholesale: dec("1.60"), Stock: 60},
		{ID: "7", Name: "Pan Dulce (Acemita)", Category: "Panadería Dulce", Cost: dec("0.30"), PriceRetail: dec("0.80"), PriceWholesale: dec("0.60"), Stock: 150},
		{ID: "8", Name: "Pan de Coco", Category: "Panadería Dulce", Cost: dec("0.60"), PriceRetail: dec("1.50"), PriceWholesale: dec("1.10"), Stock: 50},
		{ID: "9", Name: "Pasta seca", Category: "Repostería", Cost: dec("0.50"), PriceRetail: dec("0.80"), PriceWholesale: dec("0.80"), Stock: 10},
		{ID: "10", Name: "Galletas Polvorosas", Category: "Repostería", Cost: dec("1.00"), PriceRetail: dec("2.50"), PriceWholesale: dec("1.90"), Stock: 40},
		{ID: "11", Name: "Catalinas", Category: "Repostería", Cost: dec("0.20"), PriceRetail: dec("0.60"), PriceWholesale: dec("0.40"), Stock: 100},
	}
}

// seedClients returns the distribution route. Opening debts match the seeded
// dispatch sales plus prior balances.
func seedClients() []model.Client {
	route := "Ruta Distribución"
	return []model.Client{
		{ID: "cli_001", Name: "Lismay Rodríguez", BusinessName: "Lismay Rodríguez", Address: route, CreditLimit: dec("500"), Debt: dec("11.50")},
		{ID: "cli_002", Name: "Leudis", BusinessName: "Leudis", Address: route, CreditLimit: dec("300"), Debt: decimal.Zero},
		{ID: "cli_003", Name: "Girasoles", BusinessName: "Girasoles", Address: route, CreditLimit: dec("500"), Debt: decimal.Zero},
		{ID: "cli_004", Name: "Roselin", BusinessName: "Roselin", Address: route, CreditLimit: dec("300"), Debt: decimal.Zero},
		{ID: "cli_005", Name: "Leonard", BusinessName: "Leonard", Address: route, CreditLimit: dec("300"), Debt: decimal.Zero},
		{ID: "cli_006", Name: "Yannelys", BusinessName: "Yannelys", Address: "Av. Rotaria, Local 4", CreditLimit: dec("500"), Debt: dec("10.00")},
		{ID: "cli_007", Name: "Albert", BusinessName: "Albert", Address: "Barrio Obrero, Calle 10", CreditLimit: dec("300"), Debt: dec("57.00")},
		{ID: "cli_008", Name: "Lucia", BusinessName: "Lucia", Address: route, CreditLimit: dec("300"), Debt: dec("13.00")},
		{ID: "cli_009", Name: "Mariela", BusinessName: "Mariela", Address: route, CreditLimit: dec("300"), Debt: dec("57.00")},
	}
}

func seedSales() []model.Sale {
	now := time.Now()
	return []model.Sale{
		{
			ID: "X92-J4K", Date: now, Type: model.SaleTypeDispatch,
			ClientID: "cli_001", ClientName: "Lismay Rodríguez", SellerID: "u1",
			TotalAmount: dec("11.50"),
			Items: model.SaleItems{
				{ProductID: "2", ProductName: "Pan Canilla", Quantity: 5, UnitPrice: dec("1.00"), Subtotal: dec("5.00")},
				{ProductID: "1", ProductName: "Pan Francés", Quantity: 5, UnitPrice: dec("1.00"), Subtotal: dec("5.00")},
				{ProductID: "5", ProductName: "Pan de Guayaba", Quantity: 1, UnitPrice: dec("1.50"), Subtotal: dec("1.50")},
			},
		},
		{
			ID: "M23-P8L", Date: now.Add(time.Second), Type: model.SaleTypeDispatch,
			ClientID: "cli_008", ClientName: "Lucia", SellerID: "u1",
			TotalAmount: dec("13.00"),
			Items: model.SaleItems{
				{ProductID: "3", ProductName: "Pan Campesino", Quantity: 13, UnitPrice: dec("1.00"), Subtotal: dec("13.00")},
			},
		},
		{
			ID: "B77-Q2W", Date: now.Add(2 * time.Second), Type: model.SaleTypeDispatch,
			ClientID: "cli_006", ClientName: "Yannelys", SellerID: "u1",
			TotalAmount: dec("10.00"),
			Items: model.SaleItems{
				{ProductID: "1", ProductName: "Pan Francés", Quantity: 10, UnitPrice: dec("1.00"), Subtotal: dec("10.00")},
			},
		},
		{
			ID: "R44-Z9X", Date: now.Add(3 * time.Second), Type: model.SaleTypeDispatch,
			ClientID: "cli_007", ClientName: "Albert", SellerID: "u1",
			TotalAmount: dec("57.00"),
			Items: model.SaleItems{
				{ProductID: "1", ProductName: "Pan Francés", Quantity: 29, UnitPrice: dec("1.00"), Subtotal: dec("29.00")},
				{ProductID: "5", ProductName: "Pan de Guayaba", Quantity: 8, UnitPrice: dec("1.50"), Subtotal: dec("12.00")},
				{ProductID: "9", ProductName: "Pasta seca", Quantity: 20, UnitPrice: dec("0.80"), Subtotal: dec("16.00")},
			},
		},
		{
			ID: "T88-X1Y", Date: now.Add(4 * time.Second), Type: model.SaleTypeDispatch,
			ClientID: "cli_009", ClientName: "Mariela", SellerID: "u1",
			TotalAmount: dec("57.00"),
			Items: model.SaleItems{
				{ProductID: "3", ProductName: "Pan Campesino", Quantity: 51, UnitPrice: dec("1.00"), Subtotal: dec("51.00")},
				{ProductID: "5", ProductName: "Pan de Guayaba", Quantity: 4, UnitPrice: dec("1.50"), Subtotal: dec("6.00")},
			},
		},
	}
}
