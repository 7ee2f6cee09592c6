package product_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	appproduct "github.com/muhammadheryan/catalog-api/application/product"
	"github.com/muhammadheryan/catalog-api/cmd/config"
	"github.com/muhammadheryan/catalog-api/constant"
	productmocks "github.com/muhammadheryan/catalog-api/mocks/repository/product"
	redismocks "github.com/muhammadheryan/catalog-api/mocks/repository/redis"
	storagemocks "github.com/muhammadheryan/catalog-api/mocks/repository/storage"
	txmocks "github.com/muhammadheryan/catalog-api/mocks/repository/tx"
	rabbitmocks "github.com/muhammadheryan/catalog-api/mocks/thirdparty/rabbitmq"
	"github.com/muhammadheryan/catalog-api/model"
	"github.com/muhammadheryan/catalog-api/thirdparty/rabbitmq"
	cerr "github.com/muhammadheryan/catalog-api/utils/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fields struct {
	productRepo *productmocks.ProductRepository
	txRepo      *txmocks.TxRepository
	redisRepo   *redismocks.RedisRepository
	storage     *storagemocks.Storage
	publisher   *rabbitmocks.Publisher
}

func newFields(t *testing.T) fields {
	return fields{
		productRepo: productmocks.NewProductRepository(t),
		txRepo:      txmocks.NewTxRepository(t),
		redisRepo:   redismocks.NewRedisRepository(t),
		storage:     storagemocks.NewStorage(t),
		publisher:   rabbitmocks.NewPublisher(t),
	}
}

func (f fields) app() appproduct.ProductApp {
	return f.appWithConfig(&config.Config{Cache: config.CacheConfig{ProductTTL: time.Minute}})
}

func (f fields) appWithConfig(cfg *config.Config) appproduct.ProductApp {
	return appproduct.NewProductApp(cfg, f.productRepo, f.txRepo, f.redisRepo, f.storage, f.publisher)
}

// expectTx wires a transaction that is always rolled back on return.
func (f fields) expectTx(commit bool) *sqlx.Tx {
	tx := &sqlx.Tx{}
	f.txRepo.On("BeginTx", mock.Anything).Return(tx, nil).Once()
	if commit {
		f.txRepo.On("CommitTx", tx).Return(nil).Once()
	}
	f.txRepo.On("RollbackTx", tx).Return(nil).Once()
	return tx
}

func (f fields) expectWriteSideEffects(id, event string) {
	f.redisRepo.On("Delete", mock.Anything, "product:"+id).Return(nil).Once()
	f.publisher.
		On("PublishProductEvent", mock.Anything, mock.MatchedBy(func(msg rabbitmq.ProductEventMessage) bool {
			return msg.Event == event && msg.ProductID == id
		})).
		Return(nil).
		Once()
}

func assertErrCode(t *testing.T, err error, want constant.ErrorType) {
	t.Helper()
	var ce cerr.CustomError
	if !errors.As(err, &ce) {
		t.Fatalf("error type = %T, want CustomError", err)
	}
	if ce.ErrorCode() != constant.ErrorTypeCode[want] {
		t.Fatalf("error code = %s, want %s", ce.ErrorCode(), constant.ErrorTypeCode[want])
	}
}

func intPtr(i int) *int { return &i }

func floatPtr(f float64) *float64 { return &f }

func strPtr(s string) *string { return &s }

func sample() *model.ProductEntity {
	return &model.ProductEntity{
		ID:          "p-1",
		Name:        "Mug",
		Category:    "kitchen",
		Stock:       10,
		Price:       12.5,
		Status:      "active",
		Images:      model.StringList{"/upload/a.png", "/upload/b.png"},
		CreatedByID: "u-1",
	}
}

func TestProductApp_Search(t *testing.T) {
	tests := []struct {
		name     string
		req      *model.ProductSearchRequest
		mockCall func(f fields)
		want     *model.ProductListResponse
		wantErr  bool
		errCode  constant.ErrorType
	}{
		{
			name: "success: pages computed from total",
			req:  &model.ProductSearchRequest{Page: 2, Limit: 10},
			mockCall: func(f fields) {
				f.productRepo.
					On("Search", mock.Anything, &model.ProductSearchRequest{Page: 2, Limit: 10}).
					Return([]model.ProductEntity{{ID: "p-11"}}, int64(25), nil).
					Once()
			},
			want: &model.ProductListResponse{Page: 2, Limit: 10, Total: 25, Pages: 3, Items: []model.ProductEntity{{ID: "p-11"}}},
		},
		{
			name: "success: empty result has zero pages",
			req:  &model.ProductSearchRequest{Page: 1, Limit: 10},
			mockCall: func(f fields) {
				f.productRepo.On("Search", mock.Anything, mock.Anything).Return([]model.ProductEntity{}, int64(0), nil).Once()
			},
			want: &model.ProductListResponse{Page: 1, Limit: 10, Total: 0, Pages: 0, Items: []model.ProductEntity{}},
		},
		{
			name: "error: repository failure",
			req:  &model.ProductSearchRequest{Page: 1, Limit: 10},
			mockCall: func(f fields) {
				f.productRepo.On("Search", mock.Anything, mock.Anything).Return(nil, int64(0), errors.New("db error")).Once()
			},
			wantErr: true,
			errCode: constant.ErrInternal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFields(t)
			tt.mockCall(f)

			got, err := f.app().Search(context.Background(), tt.req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Search() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				assertErrCode(t, err, tt.errCode)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProductApp_List(t *testing.T) {
	f := newFields(t)
	f.productRepo.
		On("Search", mock.Anything, mock.MatchedBy(func(req *model.ProductSearchRequest) bool {
			return req.Page == 3 && req.Limit == 5 && len(req.Filters) == 0 && req.Search == nil
		})).
		Return([]model.ProductEntity{}, int64(11), nil).
		Once()

	got, err := f.app().List(context.Background(), 3, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Pages)
}

func TestProductApp_Get(t *testing.T) {
	cachedJSON, err := json.Marshal(sample())
	require.NoError(t, err)

	tests := []struct {
		name     string
		mockCall func(f fields)
		wantID   string
		wantErr  bool
		errCode  constant.ErrorType
	}{
		{
			name: "cache hit skips the database",
			mockCall: func(f fields) {
				f.redisRepo.On("Enabled").Return(true).Once()
				f.redisRepo.On("Get", mock.Anything, "product:p-1").Return(string(cachedJSON), nil).Once()
			},
			wantID: "p-1",
		},
		{
			name: "cache miss fills the cache",
			mockCall: func(f fields) {
				f.redisRepo.On("Enabled").Return(true).Twice()
				f.redisRepo.On("Get", mock.Anything, "product:p-1").Return("", nil).Once()
				f.productRepo.On("GetByID", mock.Anything, "p-1").Return(sample(), nil).Once()
				f.redisRepo.On("SetWithTTL", mock.Anything, "product:p-1", mock.AnythingOfType("string"), time.Minute).Return(nil).Once()
			},
			wantID: "p-1",
		},
		{
			name: "cache disabled",
			mockCall: func(f fields) {
				f.redisRepo.On("Enabled").Return(false).Twice()
				f.productRepo.On("GetByID", mock.Anything, "p-1").Return(sample(), nil).Once()
			},
			wantID: "p-1",
		},
		{
			name: "not found",
			mockCall: func(f fields) {
				f.redisRepo.On("Enabled").Return(false).Once()
				f.productRepo.On("GetByID", mock.Anything, "p-1").Return(nil, nil).Once()
			},
			wantErr: true,
			errCode: constant.ErrNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFields(t)
			tt.mockCall(f)

			got, err := f.app().Get(context.Background(), "p-1")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Get() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				assertErrCode(t, err, tt.errCode)
				return
			}
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestProductApp_Create(t *testing.T) {
	actor := &model.UserEntity{ID: "u-1"}

	tests := []struct {
		name     string
		req      *model.CreateProductRequest
		mockCall func(f fields)
		wantErr  bool
		errCode  constant.ErrorType
	}{
		{
			name: "success: defaults and creator stamp",
			req:  &model.CreateProductRequest{Name: "Mug", Category: "kitchen", Stock: intPtr(3), Price: floatPtr(9.999)},
			mockCall: func(f fields) {
				f.productRepo.
					On("Create", mock.Anything, mock.MatchedBy(func(p *model.ProductEntity) bool {
						return p.CreatedByID == "u-1" && p.Status == "active" && p.Discount == 0 &&
							p.Price == 10.0 && p.Stock == 3
					})).
					Return(func(_ context.Context, p *model.ProductEntity) (*model.ProductEntity, error) {
						p.ID = "p-9"
						return p, nil
					}).
					Once()
				f.publisher.
					On("PublishProductEvent", mock.Anything, mock.MatchedBy(func(msg rabbitmq.ProductEventMessage) bool {
						return msg.Event == constant.EventProductCreated && msg.ProductID == "p-9"
					})).
					Return(errors.New("broker down")).
					Once()
			},
		},
		{
			name: "error: constraint violation is normalised",
			req:  &model.CreateProductRequest{Name: "Mug", Category: "kitchen", Stock: intPtr(3), Price: floatPtr(1)},
			mockCall: func(f fields) {
				f.productRepo.
					On("Create", mock.Anything, mock.Anything).
					Return(nil, &mysql.MySQLError{Number: 1452, Message: "fk fails"}).
					Once()
			},
			wantErr: true,
			errCode: constant.ErrConstraintViolation,
		},
		{
			name: "error: other storage failure",
			req:  &model.CreateProductRequest{Name: "Mug", Category: "kitchen", Stock: intPtr(3), Price: floatPtr(1)},
			mockCall: func(f fields) {
				f.productRepo.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("conn reset")).Once()
			},
			wantErr: true,
			errCode: constant.ErrInternal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFields(t)
			tt.mockCall(f)

			got, err := f.app().Create(context.Background(), actor, tt.req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Create() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				assertErrCode(t, err, tt.errCode)
				return
			}
			assert.Equal(t, "p-9", got.ID)
		})
	}
}

func TestProductApp_Update(t *testing.T) {
	tests := []struct {
		name     string
		req      *model.UpdateProductRequest
		mockCall func(f fields)
		check    func(t *testing.T, got *model.ProductEntity)
		wantErr  bool
		errCode  constant.ErrorType
	}{
		{
			name: "success: only stock changes",
			req:  &model.UpdateProductRequest{Stock: intPtr(5)},
			mockCall: func(f fields) {
				tx := f.expectTx(true)
				f.productRepo.On("GetByIDForUpdateTx", mock.Anything, tx, "p-1").Return(sample(), nil).Once()
				f.productRepo.On("UpdateTx", mock.Anything, tx, mock.AnythingOfType("*model.ProductEntity")).Return(nil).Once()
				f.expectWriteSideEffects("p-1", constant.EventProductUpdated)
			},
			check: func(t *testing.T, got *model.ProductEntity) {
				want := sample()
				want.Stock = 5
				assert.Equal(t, want, got)
			},
		},
		{
			name: "success: empty description clears text",
			req:  &model.UpdateProductRequest{Description: strPtr(""), Price: floatPtr(3.333)},
			mockCall: func(f fields) {
				tx := f.expectTx(true)
				f.productRepo.On("GetByIDForUpdateTx", mock.Anything, tx, "p-1").Return(sample(), nil).Once()
				f.productRepo.On("UpdateTx", mock.Anything, tx, mock.Anything).Return(nil).Once()
				f.expectWriteSideEffects("p-1", constant.EventProductUpdated)
			},
			check: func(t *testing.T, got *model.ProductEntity) {
				assert.Equal(t, "", *got.Description)
				assert.Equal(t, 3.33, got.Price)
				assert.Equal(t, "Mug", got.Name)
			},
		},
		{
			name: "error: not found rolls back",
			req:  &model.UpdateProductRequest{Stock: intPtr(5)},
			mockCall: func(f fields) {
				tx := f.expectTx(false)
				f.productRepo.On("GetByIDForUpdateTx", mock.Anything, tx, "p-1").Return(nil, nil).Once()
			},
			wantErr: true,
			errCode: constant.ErrNotFound,
		},
		{
			name: "error: check constraint",
			req:  &model.UpdateProductRequest{Stock: intPtr(5)},
			mockCall: func(f fields) {
				tx := f.expectTx(false)
				f.productRepo.On("GetByIDForUpdateTx", mock.Anything, tx, "p-1").Return(sample(), nil).Once()
				f.productRepo.On("UpdateTx", mock.Anything, tx, mock.Anything).Return(&mysql.MySQLError{Number: 3819}).Once()
			},
			wantErr: true,
			errCode: constant.ErrConstraintViolation,
		},
		{
			name: "error: begin fails",
			req:  &model.UpdateProductRequest{Stock: intPtr(5)},
			mockCall: func(f fields) {
				f.txRepo.On("BeginTx", mock.Anything).Return(nil, errors.New("pool exhausted")).Once()
			},
			wantErr: true,
			errCode: constant.ErrInternal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFields(t)
			tt.mockCall(f)

			got, err := f.app().Update(context.Background(), "p-1", tt.req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Update() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				assertErrCode(t, err, tt.errCode)
				return
			}
			tt.check(t, got)
		})
	}
}

func TestProductApp_Delete(t *testing.T) {
	tests := []struct {
		name     string
		mockCall func(f fields)
		wantErr  bool
		errCode  constant.ErrorType
	}{
		{
			name: "success: images removed best effort",
			mockCall: func(f fields) {
				f.productRepo.On("GetByID", mock.Anything, "p-1").Return(sample(), nil).Once()
				f.productRepo.On("Delete", mock.Anything, "p-1").Return(true, nil).Once()
				f.storage.On("DeleteByURL", "/upload/a.png").Return(false, nil).Once()
				f.storage.On("DeleteByURL", "/upload/b.png").Return(false, errors.New("permission denied")).Once()
				f.expectWriteSideEffects("p-1", constant.EventProductDeleted)
			},
		},
		{
			name: "error: not found",
			mockCall: func(f fields) {
				f.productRepo.On("GetByID", mock.Anything, "p-1").Return(nil, nil).Once()
			},
			wantErr: true,
			errCode: constant.ErrNotFound,
		},
		{
			name: "error: deleted concurrently",
			mockCall: func(f fields) {
				f.productRepo.On("GetByID", mock.Anything, "p-1").Return(sample(), nil).Once()
				f.productRepo.On("Delete", mock.Anything, "p-1").Return(false, nil).Once()
			},
			wantErr: true,
			errCode: constant.ErrNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFields(t)
			tt.mockCall(f)

			err := f.app().Delete(context.Background(), "p-1")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Delete() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				assertErrCode(t, err, tt.errCode)
			}
		})
	}
}

func TestProductApp_Images(t *testing.T) {
	t.Run("attach appends", func(t *testing.T) {
		f := newFields(t)
		tx := f.expectTx(true)
		f.productRepo.On("GetByIDForUpdateTx", mock.Anything, tx, "p-1").Return(sample(), nil).Once()
		f.productRepo.On("UpdateTx", mock.Anything, tx, mock.Anything).Return(nil).Once()
		f.expectWriteSideEffects("p-1", constant.EventProductUpdated)

		got, err := f.app().AttachImages(context.Background(), "p-1", []string{"/upload/c.png"})
		require.NoError(t, err)
		assert.Equal(t, model.StringList{"/upload/a.png", "/upload/b.png", "/upload/c.png"}, got.Images)
	})

	t.Run("remove drops reference and file", func(t *testing.T) {
		f := newFields(t)
		tx := f.expectTx(true)
		f.productRepo.On("GetByIDForUpdateTx", mock.Anything, tx, "p-1").Return(sample(), nil).Once()
		f.productRepo.On("UpdateTx", mock.Anything, tx, mock.Anything).Return(nil).Once()
		f.storage.On("DeleteByURL", "/upload/a.png").Return(true, nil).Once()
		f.expectWriteSideEffects("p-1", constant.EventProductUpdated)

		got, err := f.app().RemoveImage(context.Background(), "p-1", "/upload/a.png")
		require.NoError(t, err)
		assert.Equal(t, model.StringList{"/upload/b.png"}, got.Images)
	})

	t.Run("remove drops every duplicate reference", func(t *testing.T) {
		f := newFields(t)
		tx := f.expectTx(true)
		p := sample()
		p.Images = model.StringList{"/upload/a.png", "/upload/b.png", "/upload/a.png"}
		f.productRepo.On("GetByIDForUpdateTx", mock.Anything, tx, "p-1").Return(p, nil).Once()
		f.productRepo.On("UpdateTx", mock.Anything, tx, mock.MatchedBy(func(updated *model.ProductEntity) bool {
			return len(updated.Images) == 1 && updated.Images[0] == "/upload/b.png"
		})).Return(nil).Once()
		f.storage.On("DeleteByURL", "/upload/a.png").Return(true, nil).Once()
		f.expectWriteSideEffects("p-1", constant.EventProductUpdated)

		got, err := f.app().RemoveImage(context.Background(), "p-1", "/upload/a.png")
		require.NoError(t, err)
		assert.Equal(t, model.StringList{"/upload/b.png"}, got.Images)
	})

	t.Run("remove unknown reference", func(t *testing.T) {
		f := newFields(t)
		tx := f.expectTx(false)
		f.productRepo.On("GetByIDForUpdateTx", mock.Anything, tx, "p-1").Return(sample(), nil).Once()

		_, err := f.app().RemoveImage(context.Background(), "p-1", "/upload/zzz.png")
		require.Error(t, err)
		assertErrCode(t, err, constant.ErrNotFound)
	})
}

func TestProductApp_Update_InvalidatesAgainAfterDelay(t *testing.T) {
	f := newFields(t)
	tx := f.expectTx(true)
	f.productRepo.On("GetByIDForUpdateTx", mock.Anything, tx, "p-1").Return(sample(), nil).Once()
	f.productRepo.On("UpdateTx", mock.Anything, tx, mock.Anything).Return(nil).Once()
	f.expectWriteSideEffects("p-1", constant.EventProductUpdated)
	f.redisRepo.On("Enabled").Return(true).Once()

	redeleted := make(chan struct{})
	f.redisRepo.On("Delete", mock.Anything, "product:p-1").Return(nil).Once().Run(func(mock.Arguments) {
		close(redeleted)
	})

	cfg := &config.Config{Cache: config.CacheConfig{ProductTTL: time.Minute, InvalidateDelay: 10 * time.Millisecond}}
	_, err := f.appWithConfig(cfg).Update(context.Background(), "p-1", &model.UpdateProductRequest{Stock: intPtr(3)})
	require.NoError(t, err)

	select {
	case <-redeleted:
	case <-time.After(time.Second):
		t.Fatal("cached product was not deleted a second time")
	}
}
