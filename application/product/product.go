package product

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/muhammadheryan/catalog-api/cmd/config"
	"github.com/muhammadheryan/catalog-api/constant"
	"github.com/muhammadheryan/catalog-api/model"
	productRepo "github.com/muhammadheryan/catalog-api/repository/product"
	redisRepo "github.com/muhammadheryan/catalog-api/repository/redis"
	"github.com/muhammadheryan/catalog-api/repository/storage"
	txRepo "github.com/muhammadheryan/catalog-api/repository/tx"
	"github.com/muhammadheryan/catalog-api/thirdparty/rabbitmq"
	ctxutil "github.com/muhammadheryan/catalog-api/utils/context"
	"github.com/muhammadheryan/catalog-api/utils/errors"
	"github.com/muhammadheryan/catalog-api/utils/logger"
	"go.uber.org/zap"
)

type ProductApp interface {
	List(ctx context.Context, page, limit int) (*model.ProductListResponse, error)
	Search(ctx context.Context, req *model.ProductSearchRequest) (*model.ProductListResponse, error)
	Get(ctx context.Context, id string) (*model.ProductEntity, error)
	Create(ctx context.Context, actor *model.UserEntity, req *model.CreateProductRequest) (*model.ProductEntity, error)
	Update(ctx context.Context, id string, req *model.UpdateProductRequest) (*model.ProductEntity, error)
	Delete(ctx context.Context, id string) error
	AttachImages(ctx context.Context, id string, urls []string) (*model.ProductEntity, error)
	RemoveImage(ctx context.Context, id, imageURL string) (*model.ProductEntity, error)
}

type productAppImpl struct {
	config      *config.Config
	productRepo productRepo.ProductRepository
	txRepo      txRepo.TxRepository
	redisRepo   redisRepo.Repository
	storage     storage.Storage
	publisher   rabbitmq.Publisher
}

func NewProductApp(
	config *config.Config,
	productRepo productRepo.ProductRepository,
	txRepo txRepo.TxRepository,
	redisRepo redisRepo.Repository,
	storage storage.Storage,
	publisher rabbitmq.Publisher,
) ProductApp {
	return &productAppImpl{
		config:      config,
		productRepo: productRepo,
		txRepo:      txRepo,
		redisRepo:   redisRepo,
		storage:     storage,
		publisher:   publisher,
	}
}

func (s *productAppImpl) List(ctx context.Context, page, limit int) (*model.ProductListResponse, error) {
	req := model.NewProductSearchRequest()
	req.Page = page
	req.Limit = limit
	return s.Search(ctx, &req)
}

func (s *productAppImpl) Search(ctx context.Context, req *model.ProductSearchRequest) (*model.ProductListResponse, error) {
	items, total, err := s.productRepo.Search(ctx, req)
	if err != nil {
		logger.Error("[Search] error productRepo.Search", zap.String("error", err.Error()))
		return nil, errors.SetCustomError(constant.ErrInternal)
	}

	return &model.ProductListResponse{
		Page:  req.Page,
		Limit: req.Limit,
		Total: total,
		Pages: model.TotalPages(total, req.Limit),
		Items: items,
	}, nil
}

// Get reads through the product cache when Redis is enabled.
func (s *productAppImpl) Get(ctx context.Context, id string) (*model.ProductEntity, error) {
	if cached := s.cached(ctx, id); cached != nil {
		return cached, nil
	}

	result, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		logger.Error("[Get] error productRepo.GetByID", zap.String("error", err.Error()))
		return nil, errors.SetCustomError(constant.ErrInternal)
	}
	if result == nil {
		return nil, productNotFound()
	}

	s.cache(ctx, result)
	return result, nil
}

func (s *productAppImpl) Create(ctx context.Context, actor *model.UserEntity, req *model.CreateProductRequest) (*model.ProductEntity, error) {
	entity := &model.ProductEntity{
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		Images:      model.StringList(req.Images),
		Stock:       *req.Stock,
		Price:       model.RoundPrice(*req.Price),
		Status:      constant.ProductStatusActive,
		CreatedByID: actor.ID,
	}
	if req.Discount != nil {
		entity.Discount = *req.Discount
	}
	if req.Status != nil {
		entity.Status = *req.Status
	}

	result, err := s.productRepo.Create(ctx, entity)
	if err != nil {
		return nil, storageError("[Create] error productRepo.Create", err)
	}

	s.publish(ctx, constant.EventProductCreated, result.ID)
	return result, nil
}

// Update applies only the supplied fields, under a row lock.
func (s *productAppImpl) Update(ctx context.Context, id string, req *model.UpdateProductRequest) (*model.ProductEntity, error) {
	return s.mutate(ctx, "[Update]", id, func(p *model.ProductEntity) error {
		p.ApplyUpdate(req)
		return nil
	})
}

// Delete removes the row and then each stored image. Image removal is best
// effort and never fails the request.
func (s *productAppImpl) Delete(ctx context.Context, id string) error {
	existing, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		logger.Error("[Delete] error productRepo.GetByID", zap.String("error", err.Error()))
		return errors.SetCustomError(constant.ErrInternal)
	}
	if existing == nil {
		return productNotFound()
	}

	deleted, err := s.productRepo.Delete(ctx, id)
	if err != nil {
		return storageError("[Delete] error productRepo.Delete", err)
	}
	if !deleted {
		return productNotFound()
	}

	for _, img := range existing.Images {
		s.removeFile(img)
	}

	s.invalidate(ctx, id)
	s.publish(ctx, constant.EventProductDeleted, id)
	return nil
}

func (s *productAppImpl) AttachImages(ctx context.Context, id string, urls []string) (*model.ProductEntity, error) {
	return s.mutate(ctx, "[AttachImages]", id, func(p *model.ProductEntity) error {
		p.Images = append(p.Images, urls...)
		return nil
	})
}

// RemoveImage drops every reference to imageURL from the product and then
// deletes the stored file, best effort.
func (s *productAppImpl) RemoveImage(ctx context.Context, id, imageURL string) (*model.ProductEntity, error) {
	result, err := s.mutate(ctx, "[RemoveImage]", id, func(p *model.ProductEntity) error {
		kept := make(model.StringList, 0, len(p.Images))
		found := false
		for _, img := range p.Images {
			if img == imageURL {
				found = true
				continue
			}
			kept = append(kept, img)
		}
		if !found {
			return errors.SetCustomErrorMessage(constant.ErrNotFound, "Image not found on product")
		}
		p.Images = kept
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.removeFile(imageURL)
	return result, nil
}

// mutate loads the product FOR UPDATE, applies fn and writes it back in one
// transaction. fn may return a CustomError to abort.
func (s *productAppImpl) mutate(ctx context.Context, op, id string, fn func(p *model.ProductEntity) error) (*model.ProductEntity, error) {
	tx, err := s.txRepo.BeginTx(ctx)
	if err != nil {
		logger.Error(op+" error txRepo.BeginTx", zap.String("error", err.Error()))
		return nil, errors.SetCustomError(constant.ErrInternal)
	}
	defer s.rollback(op, tx)

	product, err := s.productRepo.GetByIDForUpdateTx(ctx, tx, id)
	if err != nil {
		logger.Error(op+" error productRepo.GetByIDForUpdateTx", zap.String("error", err.Error()))
		return nil, errors.SetCustomError(constant.ErrInternal)
	}
	if product == nil {
		return nil, productNotFound()
	}

	if err := fn(product); err != nil {
		return nil, err
	}

	if err := s.productRepo.UpdateTx(ctx, tx, product); err != nil {
		return nil, storageError(op+" error productRepo.UpdateTx", err)
	}

	if err := s.txRepo.CommitTx(tx); err != nil {
		logger.Error(op+" error txRepo.CommitTx", zap.String("error", err.Error()))
		return nil, errors.SetCustomError(constant.ErrInternal)
	}

	s.invalidate(ctx, id)
	s.publish(ctx, constant.EventProductUpdated, id)
	return product, nil
}

func (s *productAppImpl) rollback(op string, tx *sqlx.Tx) {
	if err := s.txRepo.RollbackTx(tx); err != nil {
		logger.Warn(op+" error txRepo.RollbackTx", zap.String("error", err.Error()))
	}
}

func (s *productAppImpl) cached(ctx context.Context, id string) *model.ProductEntity {
	if !s.redisRepo.Enabled() {
		return nil
	}
	raw, err := s.redisRepo.Get(ctx, redisRepo.ProductKey(id))
	if err != nil {
		logger.Warn("[Get] error redisRepo.Get", zap.String("error", err.Error()))
		return nil
	}
	if raw == "" {
		return nil
	}
	var p model.ProductEntity
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		logger.Warn("[Get] error json.Unmarshal cached product", zap.String("error", err.Error()))
		return nil
	}
	return &p
}

func (s *productAppImpl) cache(ctx context.Context, p *model.ProductEntity) {
	if !s.redisRepo.Enabled() {
		return
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := s.redisRepo.SetWithTTL(ctx, redisRepo.ProductKey(p.ID), string(raw), s.config.Cache.ProductTTL); err != nil {
		logger.Warn("[Get] error redisRepo.SetWithTTL", zap.String("error", err.Error()))
	}
}

// invalidate drops the cached product now and, when configured, once more
// after InvalidateDelay. A Get that read the old row before the write
// committed may cache it after the first delete; the second delete clears it.
func (s *productAppImpl) invalidate(ctx context.Context, id string) {
	key := redisRepo.ProductKey(id)
	if err := s.redisRepo.Delete(ctx, key); err != nil {
		logger.Warn("[invalidate] error redisRepo.Delete", zap.String("product_id", id), zap.String("error", err.Error()))
	}

	delay := s.config.Cache.InvalidateDelay
	if delay <= 0 || !s.redisRepo.Enabled() {
		return
	}
	time.AfterFunc(delay, func() {
		if err := s.redisRepo.Delete(context.Background(), key); err != nil {
			logger.Warn("[invalidate] error delayed redisRepo.Delete", zap.String("product_id", id), zap.String("error", err.Error()))
		}
	})
}

func (s *productAppImpl) removeFile(ref string) {
	if _, err := s.storage.DeleteByURL(ref); err != nil {
		logger.Warn("[removeFile] error storage.DeleteByURL", zap.String("image", ref), zap.String("error", err.Error()))
	}
}

// publish never fails the request; the write is already committed.
func (s *productAppImpl) publish(ctx context.Context, event, id string) {
	actorID, _ := ctxutil.GetUserID(ctx)
	err := s.publisher.PublishProductEvent(ctx, rabbitmq.ProductEventMessage{
		Event:      event,
		ProductID:  id,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		logger.Error("[publish] error publisher.PublishProductEvent", zap.String("event", event), zap.String("error", err.Error()))
	}
}

func productNotFound() error {
	return errors.SetCustomErrorMessage(constant.ErrNotFound, "Product not found")
}

// storageError hides constraint details from the caller.
func storageError(msg string, err error) error {
	if errors.IsConstraintViolation(err) {
		logger.Warn(msg, zap.String("error", err.Error()))
		return errors.SetCustomError(constant.ErrConstraintViolation)
	}
	logger.Error(msg, zap.String("error", err.Error()))
	return errors.SetCustomError(constant.ErrInternal)
}
