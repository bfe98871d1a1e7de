package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mmeshcher/procurement/internal/model"
	"github.com/mmeshcher/procurement/internal/notify"
	"github.com/mmeshcher/procurement/internal/repository"
)

// memRepo хранит данные в памяти и повторяет семантику запросов PostgresRepository.
type memRepo struct {
	mu sync.Mutex

	today time.Time

	users     map[int64]*model.User
	shops     map[int64]*model.Shop
	products  map[int64]*model.ProductInfo
	orders    []*model.Order
	contacts  map[int64]*model.Contact
	nextOrder int64
	nextCont  int64

	notifications []notify.Notification
	enqueueErr    error
	promoteErr    error
}

func newMemRepo() *memRepo {
	return &memRepo{
		today:    time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC),
		users:    make(map[int64]*model.User),
		shops:    make(map[int64]*model.Shop),
		products: make(map[int64]*model.ProductInfo),
		contacts: make(map[int64]*model.Contact),
	}
}

func (m *memRepo) addUser(u model.User) {
	m.users[u.ID] = &u
}

func (m *memRepo) addShop(id int64, name string, owner int64) {
	m.shops[id] = &model.Shop{ID: id, Name: name, UserID: &owner, IsActive: true}
}

func (m *memRepo) addProduct(pi model.ProductInfo) {
	if s, ok := m.shops[pi.ShopID]; ok {
		pi.Shop = s.Name
	}
	m.products[pi.ID] = &pi
}

func (m *memRepo) rowsOf(userID int64) []*model.Order {
	var res []*model.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			res = append(res, o)
		}
	}
	return res
}

func (m *memRepo) Close() error { return nil }

func (m *memRepo) CreateUser(ctx context.Context, u model.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return 0, fmt.Errorf("%w: %s", model.ErrUserExists, u.Email)
		}
	}
	u.ID = int64(len(m.users) + 1)
	m.users[u.ID] = &u
	return u.ID, nil
}

func (m *memRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: user", model.ErrNotFound)
}

func (m *memRepo) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user", model.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (m *memRepo) ListShops(ctx context.Context) ([]model.Shop, error) {
	var res []model.Shop
	for _, s := range m.shops {
		res = append(res, *s)
	}
	return res, nil
}

func (m *memRepo) GetShop(ctx context.Context, id int64) (*model.Shop, error) {
	s, ok := m.shops[id]
	if !ok {
		return nil, fmt.Errorf("%w: shop %d", model.ErrNotFound, id)
	}
	cp := *s
	return &cp, nil
}

func (m *memRepo) UpdateShop(ctx context.Context, ownerID int64, s model.Shop) (*model.Shop, error) {
	cur, ok := m.shops[s.ID]
	if !ok || cur.UserID == nil || *cur.UserID != ownerID {
		return nil, fmt.Errorf("%w: shop %d", model.ErrNotFound, s.ID)
	}
	cur.Name, cur.URL, cur.IsActive = s.Name, s.URL, s.IsActive
	cp := *cur
	return &cp, nil
}

func (m *memRepo) AssignShops(ctx context.Context) (map[string]string, error) {
	res := make(map[string]string)
	for _, u := range m.users {
		if u.Type != model.UserTypeSupplier {
			continue
		}
		for _, s := range m.shops {
			if s.Name == u.Company {
				id := u.ID
				s.UserID = &id
				res[u.Email] = s.Name
			}
		}
	}
	return res, nil
}

func (m *memRepo) ListCategories(ctx context.Context) ([]model.Category, error) {
	return nil, nil
}

func (m *memRepo) ListProducts(ctx context.Context, search string, descending bool) ([]model.Product, error) {
	return nil, nil
}

func (m *memRepo) GetProductInfo(ctx context.Context, id int64) (*model.ProductInfo, error) {
	pi, ok := m.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: product info %d", model.ErrNotFound, id)
	}
	cp := *pi
	return &cp, nil
}

func (m *memRepo) ownsShop(ownerID, shopID int64) bool {
	s, ok := m.shops[shopID]
	return ok && s.UserID != nil && *s.UserID == ownerID
}

func (m *memRepo) CreateProductInfo(ctx context.Context, ownerID int64, pi model.ProductInfo) (int64, error) {
	for _, s := range m.shops {
		if s.UserID != nil && *s.UserID == ownerID {
			pi.ID = int64(len(m.products) + 100)
			pi.ShopID = s.ID
			m.addProduct(pi)
			return pi.ID, nil
		}
	}
	return 0, fmt.Errorf("%w: supplier has no shop", model.ErrNotFound)
}

func (m *memRepo) UpdateProductStock(ctx context.Context, ownerID, id, quantity, retailPrice int64) error {
	pi, ok := m.products[id]
	if !ok || !m.ownsShop(ownerID, pi.ShopID) {
		return fmt.Errorf("%w: product info %d", model.ErrNotFound, id)
	}
	pi.QuantityInStock, pi.RetailPrice = quantity, retailPrice
	return nil
}

func (m *memRepo) DeleteProductInfo(ctx context.Context, ownerID, id int64) error {
	pi, ok := m.products[id]
	if !ok || !m.ownsShop(ownerID, pi.ShopID) {
		return fmt.Errorf("%w: product info %d", model.ErrNotFound, id)
	}
	for _, o := range m.orders {
		if o.ProductInfoID == id && o.Status != model.OrderStatusBasket {
			return fmt.Errorf("%w: product info %d is used in placed orders", model.ErrValidation, id)
		}
	}
	var kept []*model.Order
	for _, o := range m.orders {
		if o.ProductInfoID != id {
			kept = append(kept, o)
		}
	}
	m.orders = kept
	delete(m.products, id)
	return nil
}

func (m *memRepo) AddToBasket(ctx context.Context, userID, productInfoID int64) (bool, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pi, ok := m.products[productInfoID]
	if !ok {
		return false, "", fmt.Errorf("%w: product info %d", model.ErrNotFound, productInfoID)
	}
	for _, o := range m.rowsOf(userID) {
		if o.ProductInfoID == productInfoID {
			return false, pi.Name, nil
		}
	}
	m.nextOrder++
	m.orders = append(m.orders, &model.Order{
		ID:            m.nextOrder,
		UserID:        userID,
		ProductInfoID: productInfoID,
		Quantity:      1,
		Status:        model.OrderStatusBasket,
		Date:          m.today,
	})
	return true, pi.Name, nil
}

func (m *memRepo) ListBasket(ctx context.Context, userID int64) ([]model.BasketItem, error) {
	var res []model.BasketItem
	for _, o := range m.rowsOf(userID) {
		if o.Status != model.OrderStatusBasket {
			continue
		}
		pi := m.products[o.ProductInfoID]
		res = append(res, model.BasketItem{
			ID:              o.ID,
			Name:            pi.Name,
			Shop:            pi.Shop,
			Price:           pi.RetailPrice,
			QuantityInStock: pi.QuantityInStock,
			Quantity:        o.Quantity,
			SumValue:        pi.RetailPrice * o.Quantity,
		})
	}
	return res, nil
}

func (m *memRepo) findOrder(userID, orderID int64) (*model.Order, int) {
	for i, o := range m.orders {
		if o.ID == orderID && o.UserID == userID {
			return o, i
		}
	}
	return nil, -1
}

func (m *memRepo) GetOrderItem(ctx context.Context, userID, orderID int64) (*repository.OrderItem, error) {
	o, _ := m.findOrder(userID, orderID)
	if o == nil {
		return nil, fmt.Errorf("%w: order %d", model.ErrNotFound, orderID)
	}
	pi := m.products[o.ProductInfoID]
	return &repository.OrderItem{Order: *o, ProductName: pi.Name, QuantityInStock: pi.QuantityInStock}, nil
}

func (m *memRepo) UpdateOrderQuantity(ctx context.Context, userID, orderID, quantity int64) error {
	o, _ := m.findOrder(userID, orderID)
	if o == nil {
		return fmt.Errorf("%w: order %d", model.ErrNotFound, orderID)
	}
	o.Quantity = quantity
	return nil
}

func (m *memRepo) DeleteOrderItem(ctx context.Context, userID, orderID int64) (string, error) {
	o, i := m.findOrder(userID, orderID)
	if o == nil {
		return "", fmt.Errorf("%w: order %d", model.ErrNotFound, orderID)
	}
	m.orders = append(m.orders[:i], m.orders[i+1:]...)
	return m.products[o.ProductInfoID].Name, nil
}

func (m *memRepo) supplierEmails(userID int64, number string) []string {
	set := make(map[string]bool)
	for _, o := range m.rowsOf(userID) {
		if o.OrderNumber != number {
			continue
		}
		shop := m.shops[m.products[o.ProductInfoID].ShopID]
		if shop == nil || shop.UserID == nil {
			continue
		}
		set[m.users[*shop.UserID].Email] = true
	}
	var emails []string
	for e := range set {
		emails = append(emails, e)
	}
	sort.Strings(emails)
	return emails
}

func (m *memRepo) PromoteBasket(ctx context.Context, userID int64) ([]model.PromotedOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.promoteErr != nil {
		return nil, m.promoteErr
	}

	rows := m.rowsOf(userID)
	for _, o := range rows {
		if o.Status == model.OrderStatusBasket {
			o.Status = model.OrderStatusNew
		}
	}

	var last int64
	dateSet := make(map[time.Time]bool)
	for _, o := range rows {
		if o.OrderNumber != "" {
			seq, _ := strconv.ParseInt(strings.SplitN(o.OrderNumber, "-", 2)[1], 10, 64)
			last = max(last, seq)
		} else if o.Status == model.OrderStatusNew {
			dateSet[o.Date] = true
		}
	}
	var dates []time.Time
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	var promoted []model.PromotedOrder
	for i, d := range dates {
		number := repository.FormatOrderNumber(userID, last+int64(i)+1)
		for _, o := range rows {
			if o.Status == model.OrderStatusNew && o.OrderNumber == "" && o.Date.Equal(d) {
				o.OrderNumber = number
			}
		}
		promoted = append(promoted, model.PromotedOrder{
			Number:         number,
			Date:           d,
			SupplierEmails: m.supplierEmails(userID, number),
		})
	}
	return promoted, nil
}

func (m *memRepo) CancelActiveOrders(ctx context.Context, userID int64) ([]model.PromotedOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := make(map[model.OrderStatus]bool)
	for _, st := range model.ActiveStatuses {
		active[st] = true
	}

	seen := make(map[string]bool)
	var res []model.PromotedOrder
	for _, o := range m.rowsOf(userID) {
		if !active[o.Status] {
			continue
		}
		o.Status = model.OrderStatusCanceled
		if !seen[o.OrderNumber] {
			seen[o.OrderNumber] = true
			res = append(res, model.PromotedOrder{Number: o.OrderNumber, Date: o.Date})
		}
	}
	for i := range res {
		res[i].SupplierEmails = m.supplierEmails(userID, res[i].Number)
	}
	return res, nil
}

func (m *memRepo) TransitionOrder(ctx context.Context, number string, f repository.OrderFilter, target model.OrderStatus) (int64, error) {
	var (
		matched []*model.Order
		buyerID int64
	)
	for _, o := range m.orders {
		if o.OrderNumber != number {
			continue
		}
		if f.BuyerID != 0 && o.UserID != f.BuyerID {
			continue
		}
		if f.SupplierID != 0 && !m.ownsShop(f.SupplierID, m.products[o.ProductInfoID].ShopID) {
			continue
		}
		if !o.Status.CanTransition(target) {
			return 0, fmt.Errorf("%w: order %s cannot change status from %s to %s",
				model.ErrValidation, number, o.Status, target)
		}
		matched = append(matched, o)
		buyerID = o.UserID
	}
	if len(matched) == 0 {
		return 0, fmt.Errorf("%w: order %s", model.ErrNotFound, number)
	}
	for _, o := range matched {
		o.Status = target
	}
	return buyerID, nil
}

func (m *memRepo) ListOrders(ctx context.Context, userID int64) ([]model.OrderSummary, error) {
	type key struct {
		date   time.Time
		number string
		status model.OrderStatus
	}
	sums := make(map[key]int64)
	var keys []key
	for _, o := range m.rowsOf(userID) {
		if o.Status == model.OrderStatusBasket {
			continue
		}
		k := key{o.Date, o.OrderNumber, o.Status}
		if _, ok := sums[k]; !ok {
			keys = append(keys, k)
		}
		sums[k] += m.products[o.ProductInfoID].RetailPrice * o.Quantity
	}
	var res []model.OrderSummary
	for _, k := range keys {
		res = append(res, model.OrderSummary{
			OrderNumber: k.number, UserID: userID, Date: k.date, Sum: sums[k], Status: k.status,
		})
	}
	return res, nil
}

func (m *memRepo) line(o *model.Order, cost bool) model.OrderLine {
	pi := m.products[o.ProductInfoID]
	u := m.users[o.UserID]
	price := pi.RetailPrice
	if cost {
		price = pi.Price
	}
	l := model.OrderLine{
		ID: o.ID, OrderNumber: o.OrderNumber, Date: o.Date, Status: o.Status,
		Name: pi.Name, Shop: pi.Shop, Price: price, Quantity: o.Quantity, Sum: price * o.Quantity,
		User: u.FullName(), Email: u.Email,
	}
	for _, c := range m.contacts {
		if c.UserID == o.UserID {
			l.Phone, l.Street, l.House = c.Phone, c.Street, c.House
		}
	}
	return l
}

func (m *memRepo) GetOrderDetail(ctx context.Context, userID int64, number string) ([]model.OrderLine, error) {
	var res []model.OrderLine
	for _, o := range m.rowsOf(userID) {
		if o.OrderNumber == number {
			res = append(res, m.line(o, false))
		}
	}
	return res, nil
}

func (m *memRepo) ListTodayNewOrders(ctx context.Context, userID int64) ([]model.OrderLine, error) {
	var res []model.OrderLine
	for _, o := range m.rowsOf(userID) {
		if o.Status == model.OrderStatusNew && o.Date.Equal(m.today) {
			res = append(res, m.line(o, false))
		}
	}
	return res, nil
}

func (m *memRepo) ListSupplierOrderLines(ctx context.Context, supplierID int64, number string) ([]model.OrderLine, error) {
	var res []model.OrderLine
	for _, o := range m.orders {
		if o.Status == model.OrderStatusBasket || !m.ownsShop(supplierID, m.products[o.ProductInfoID].ShopID) {
			continue
		}
		if number != "" && o.OrderNumber != number {
			continue
		}
		res = append(res, m.line(o, true))
	}
	return res, nil
}

func (m *memRepo) ListContacts(ctx context.Context, userID int64) ([]model.Contact, error) {
	var res []model.Contact
	for _, c := range m.contacts {
		if c.UserID == userID {
			res = append(res, *c)
		}
	}
	return res, nil
}

func (m *memRepo) GetContact(ctx context.Context, userID, id int64) (*model.Contact, error) {
	c, ok := m.contacts[id]
	if !ok || c.UserID != userID {
		return nil, fmt.Errorf("%w: contact", model.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (m *memRepo) HasContact(ctx context.Context, userID int64) (bool, error) {
	for _, c := range m.contacts {
		if c.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) CreateContact(ctx context.Context, c model.Contact) (int64, error) {
	if ok, _ := m.HasContact(ctx, c.UserID); ok {
		return 0, &model.ConflictError{Message: "contact already exists"}
	}
	m.nextCont++
	c.ID = m.nextCont
	m.contacts[c.ID] = &c
	return c.ID, nil
}

func (m *memRepo) UpdateContact(ctx context.Context, c model.Contact) error {
	cur, ok := m.contacts[c.ID]
	if !ok || cur.UserID != c.UserID {
		return fmt.Errorf("%w: contact %d", model.ErrNotFound, c.ID)
	}
	*cur = c
	return nil
}

func (m *memRepo) DeleteContact(ctx context.Context, userID, id int64) error {
	c, ok := m.contacts[id]
	if !ok || c.UserID != userID {
		return fmt.Errorf("%w: contact %d", model.ErrNotFound, id)
	}
	delete(m.contacts, id)
	return nil
}

func (m *memRepo) EnqueueNotifications(ctx context.Context, ns ...notify.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enqueueErr != nil {
		return m.enqueueErr
	}
	m.notifications = append(m.notifications, ns...)
	return nil
}

var (
	_ Repository = (*memRepo)(nil)
	_ Notifier   = (*memRepo)(nil)
)
