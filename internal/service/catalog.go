package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmeshcher/procurement/internal/model"
)

// ListShops возвращает все магазины.
func (s *Service) ListShops(ctx context.Context) ([]model.Shop, error) {
	return s.repo.ListShops(ctx)
}

// GetShop возвращает магазин по идентификатору.
func (s *Service) GetShop(ctx context.Context, id int64) (*model.Shop, error) {
	return s.repo.GetShop(ctx, id)
}

// UpdateShop изменяет магазин поставщика.
func (s *Service) UpdateShop(ctx context.Context, userID int64, shop model.Shop) (*model.Shop, error) {
	if _, err := s.requireSupplier(ctx, userID); err != nil {
		return nil, err
	}
	shop.Name = strings.TrimSpace(shop.Name)
	if shop.Name == "" {
		current, err := s.repo.GetShop(ctx, shop.ID)
		if err != nil {
			return nil, err
		}
		shop.Name = current.Name
	}
	return s.repo.UpdateShop(ctx, userID, shop)
}

// AssignShops прикрепляет поставщиков к магазинам их компаний.
func (s *Service) AssignShops(ctx context.Context, userID int64) (map[string]string, error) {
	if _, err := s.requireSupplier(ctx, userID); err != nil {
		return nil, err
	}
	assigned, err := s.repo.AssignShops(ctx)
	if err != nil {
		return nil, err
	}
	if len(assigned) == 0 {
		return nil, fmt.Errorf("%w: supplier or shop does not exist", model.ErrNotFound)
	}
	return assigned, nil
}

// ListCategories возвращает все категории.
func (s *Service) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.repo.ListCategories(ctx)
}

// ListProducts ищет товары по подстроке названия. ordering принимает "name", "-name" или пустую строку.
func (s *Service) ListProducts(ctx context.Context, search, ordering string) ([]model.Product, error) {
	switch ordering {
	case "", "name":
		return s.repo.ListProducts(ctx, strings.TrimSpace(search), false)
	case "-name":
		return s.repo.ListProducts(ctx, strings.TrimSpace(search), true)
	}
	return nil, fmt.Errorf("%w: unsupported ordering %q", model.ErrValidation, ordering)
}

// GetProductInfo возвращает предложение по товару.
func (s *Service) GetProductInfo(ctx context.Context, id int64) (*model.ProductInfo, error) {
	return s.repo.GetProductInfo(ctx, id)
}

// CreateProductInfo добавляет предложение в магазин поставщика.
func (s *Service) CreateProductInfo(ctx context.Context, userID int64, pi model.ProductInfo) (*model.ProductInfo, error) {
	if _, err := s.requireSupplier(ctx, userID); err != nil {
		return nil, err
	}
	pi.Name = strings.TrimSpace(pi.Name)
	if pi.Name == "" {
		return nil, fmt.Errorf("%w: name is required", model.ErrValidation)
	}
	if pi.QuantityInStock < 0 || pi.Price < 0 || pi.RetailPrice < 0 {
		return nil, fmt.Errorf("%w: quantity and prices must not be negative", model.ErrValidation)
	}

	id, err := s.repo.CreateProductInfo(ctx, userID, pi)
	if err != nil {
		return nil, err
	}
	return s.repo.GetProductInfo(ctx, id)
}

// StockUpdate описывает изменение остатка и розничной цены. Nil-поля не меняются.
type StockUpdate struct {
	Quantity    *int64
	RetailPrice *int64
}

// UpdateProductStock изменяет остаток и розничную цену предложения поставщика.
func (s *Service) UpdateProductStock(ctx context.Context, userID, id int64, upd StockUpdate) (*model.ProductInfo, error) {
	if _, err := s.requireSupplier(ctx, userID); err != nil {
		return nil, err
	}

	current, err := s.repo.GetProductInfo(ctx, id)
	if err != nil {
		return nil, err
	}

	quantity, retail := current.QuantityInStock, current.RetailPrice
	if upd.Quantity != nil {
		quantity = *upd.Quantity
	}
	if upd.RetailPrice != nil {
		retail = *upd.RetailPrice
	}
	if quantity < 0 || retail < 0 {
		return nil, fmt.Errorf("%w: quantity and prices must not be negative", model.ErrValidation)
	}

	if err := s.repo.UpdateProductStock(ctx, userID, id, quantity, retail); err != nil {
		return nil, err
	}
	return s.repo.GetProductInfo(ctx, id)
}

// DeleteProductInfo удаляет предложение из магазина поставщика.
func (s *Service) DeleteProductInfo(ctx context.Context, userID, id int64) error {
	if _, err := s.requireSupplier(ctx, userID); err != nil {
		return err
	}
	return s.repo.DeleteProductInfo(ctx, userID, id)
}
