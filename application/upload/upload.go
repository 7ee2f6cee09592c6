package upload

import (
	"context"
	stderrors "errors"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/muhammadheryan/catalog-api/constant"
	"github.com/muhammadheryan/catalog-api/model"
	"github.com/muhammadheryan/catalog-api/repository/storage"
	"github.com/muhammadheryan/catalog-api/utils/errors"
	"github.com/muhammadheryan/catalog-api/utils/logger"
	"go.uber.org/zap"
)

const maxExtLen = 10

type UploadApp interface {
	SaveImages(ctx context.Context, files []*multipart.FileHeader) (*model.UploadResponse, error)
	Open(name string) (*os.File, error)
}

type uploadAppImpl struct {
	storage storage.Storage
}

func NewUploadApp(storage storage.Storage) UploadApp {
	return &uploadAppImpl{storage: storage}
}

// SaveImages stores every file under a generated name. All parts are checked
// before anything is written, so a single non-image rejects the batch.
func (s *uploadAppImpl) SaveImages(ctx context.Context, files []*multipart.FileHeader) (*model.UploadResponse, error) {
	if len(files) == 0 {
		return nil, errors.SetCustomErrorMessage(constant.ErrInvalidRequest, "no files uploaded")
	}
	for _, fh := range files {
		if !strings.HasPrefix(fh.Header.Get("Content-Type"), "image/") {
			return nil, errors.SetCustomErrorMessage(constant.ErrInvalidRequest, fmt.Sprintf("%s is not an image", fh.Filename))
		}
	}

	urls := make([]string, 0, len(files))
	for _, fh := range files {
		url, err := s.save(ctx, fh)
		if err != nil {
			logger.Error("[SaveImages] error storage.Save", zap.String("file", fh.Filename), zap.String("error", err.Error()))
			s.discard(urls)
			return nil, errors.SetCustomError(constant.ErrInternal)
		}
		urls = append(urls, url)
	}

	return &model.UploadResponse{URLs: urls}, nil
}

func (s *uploadAppImpl) Open(name string) (*os.File, error) {
	f, err := s.storage.Open(name)
	if err != nil {
		if stderrors.Is(err, storage.ErrInvalidName) || stderrors.Is(err, os.ErrNotExist) {
			return nil, errors.SetCustomErrorMessage(constant.ErrNotFound, "File not found")
		}
		logger.Error("[Open] error storage.Open", zap.String("error", err.Error()))
		return nil, errors.SetCustomError(constant.ErrInternal)
	}
	return f, nil
}

func (s *uploadAppImpl) save(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	return s.storage.Save(ctx, uuid.NewString()+safeExt(fh.Filename), src)
}

// discard removes files written earlier in a failed batch.
func (s *uploadAppImpl) discard(urls []string) {
	for _, u := range urls {
		if _, err := s.storage.DeleteByURL(u); err != nil {
			logger.Warn("[SaveImages] error storage.DeleteByURL", zap.String("error", err.Error()))
		}
	}
}

// safeExt keeps the client's extension only when it is short and
// alphanumeric.
func safeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) < 2 || len(ext) > maxExtLen {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
