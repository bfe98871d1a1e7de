// Package model содержит доменные сущности сервиса закупок.
package model

import "time"

// UserType определяет роль пользователя на площадке.
type UserType string

const (
	UserTypeBuyer    UserType = "buyer"
	UserTypeSupplier UserType = "supplier"
)

// Valid сообщает, является ли тип пользователя допустимым.
func (t UserType) Valid() bool {
	return t == UserTypeBuyer || t == UserTypeSupplier
}

// User представляет зарегистрированного пользователя площадки.
type User struct {
	ID           int64
	Email        string
	PasswordHash []byte
	FirstName    string
	LastName     string
	Company      string
	Position     string
	Type         UserType
	CreatedAt    time.Time
}

// FullName возвращает имя и фамилию пользователя.
func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// Shop описывает магазин поставщика.
type Shop struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	UserID   *int64 `json:"-"`
	IsActive bool   `json:"is_active"`
}

// Category описывает категорию товаров.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Product описывает товар каталога.
type Product struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// ProductParameter описывает значение характеристики товара.
type ProductParameter struct {
	Parameter string `json:"parameter"`
	Value     string `json:"value"`
}

// ProductInfo описывает предложение магазина по товару: остаток и цены.
type ProductInfo struct {
	ID              int64              `json:"id"`
	Name            string             `json:"name"`
	ProductID       int64              `json:"product_id"`
	Product         string             `json:"product"`
	ShopID          int64              `json:"-"`
	Shop            string             `json:"shop"`
	QuantityInStock int64              `json:"quantity"`
	Price           int64              `json:"-"`
	RetailPrice     int64              `json:"retail_price"`
	Basket          bool               `json:"basket"`
	Parameters      []ProductParameter `json:"product_parameter"`
}

// Order описывает строку заказа: один товар одного пользователя.
// Заказом считается набор строк с одинаковым номером.
type Order struct {
	ID            int64
	UserID        int64
	ProductInfoID int64
	Quantity      int64
	Status        OrderStatus
	Date          time.Time
	OrderNumber   string
}

// Contact содержит адрес доставки и телефон пользователя.
type Contact struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user"`
	City      string `json:"city"`
	Street    string `json:"street"`
	House     string `json:"house"`
	Structure string `json:"structure"`
	Building  string `json:"building"`
	Apartment string `json:"apartment"`
	Phone     string `json:"phone"`
}

// BasketItem представляет строку корзины вместе с данными товара.
type BasketItem struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Shop            string `json:"shop"`
	Price           int64  `json:"price"`
	QuantityInStock int64  `json:"quantity_in_stock"`
	Quantity        int64  `json:"quantity"`
	SumValue        int64  `json:"sum_value"`
}

// OrderSummary содержит итог по одному заказу.
type OrderSummary struct {
	OrderNumber string      `json:"order_number"`
	UserID      int64       `json:"user_id"`
	Date        time.Time   `json:"date"`
	Sum         int64       `json:"sum_"`
	Status      OrderStatus `json:"status"`
}

// OrderLine представляет строку детализации заказа.
// Для поставщика Price содержит закупочную цену, для покупателя розничную.
type OrderLine struct {
	ID          int64       `json:"id"`
	OrderNumber string      `json:"order_number"`
	Date        time.Time   `json:"date"`
	Status      OrderStatus `json:"status"`
	Name        string      `json:"name"`
	Shop        string      `json:"shop"`
	Price       int64       `json:"price"`
	Quantity    int64       `json:"quantity"`
	Sum         int64       `json:"sum_"`
	User        string      `json:"user"`
	Email       string      `json:"email"`
	Phone       string      `json:"phone"`
	Street      string      `json:"street"`
	House       string      `json:"house"`
}

// PromotedOrder описывает заказ, получивший номер при оформлении корзины
// или затронутый отменой.
type PromotedOrder struct {
	Number         string
	Date           time.Time
	SupplierEmails []string
}
