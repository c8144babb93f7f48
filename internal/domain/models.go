package domain

import "time"

// Product позиция меню
type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
	Available   bool    `json:"available"`
}

// Categories допустимые категории меню
var Categories = []string{"pizza", "burger", "drink", "deal", "side", "dessert"}

func IsCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// CartLine позиция корзины: копия товара на момент добавления и количество
type CartLine struct {
	Product  Product `json:"product"`
	Quantity int64   `json:"quantity"`
}

// OrderStatus тип статуса заказа
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// PaymentMethod только метка, платёжного шлюза нет
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// Role роль пользователя, приходит от провайдера аутентификации
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleAdmin    Role = "admin"
)

// User текущий пользователь запроса
type User struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// Privileged сотрудник или администратор
func (u User) Privileged() bool {
	return u.Role == RoleStaff || u.Role == RoleAdmin
}

type DeliveryAddress struct {
	Street   string `json:"street"`
	City     string `json:"city"`
	Postcode string `json:"postcode"`
	Phone    string `json:"phone"`
}

// OrderItemInput позиция в запросе на создание заказа
type OrderItemInput struct {
	ProductID int64 `json:"product"`
	Quantity  int64 `json:"quantity"`
}

// PlaceOrderInput тело запроса на создание заказа
type PlaceOrderInput struct {
	Items           []OrderItemInput `json:"items"`
	PaymentMethod   PaymentMethod    `json:"paymentMethod"`
	DeliveryAddress DeliveryAddress  `json:"deliveryAddress"`
	Notes           string           `json:"notes"`
}

// OrderItem позиция в заказе, цена зафиксирована на момент заказа
type OrderItem struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int64   `json:"quantity"`
}

// Order сущность заказа
type Order struct {
	ID              int64           `json:"id"`
	UserID          string          `json:"user_id"`
	Items           []OrderItem     `json:"items"`
	TotalAmount     float64         `json:"total_amount"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`
	DeliveryAddress DeliveryAddress `json:"delivery_address"`
	Notes           string          `json:"notes"`
	Status          OrderStatus     `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// SalesTotal сумма и количество заказов
type SalesTotal struct {
	Total float64 `json:"total"`
	Count int64   `json:"count"`
}

type StatusCount struct {
	Status OrderStatus `json:"status"`
	Count  int64       `json:"count"`
}

type MonthlySales struct {
	Month string  `json:"month"`
	Total float64 `json:"total"`
	Count int64   `json:"count"`
}

// OrderStats сводка продаж для админки
type OrderStats struct {
	TotalSales     SalesTotal     `json:"totalSales"`
	OrdersByStatus []StatusCount  `json:"ordersByStatus"`
	MonthlySales   []MonthlySales `json:"monthlySales"`
}
