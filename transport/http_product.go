package transport

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/muhammadheryan/catalog-api/constant"
	"github.com/muhammadheryan/catalog-api/model"
	utilsContext "github.com/muhammadheryan/catalog-api/utils/context"
	"github.com/muhammadheryan/catalog-api/utils/errors"
	validatorx "github.com/muhammadheryan/catalog-api/utils/validator"
)

// multipart parts above this size spill to temporary files
const multipartMemory = 8 << 20

// ListProducts handler
// @Summary List products
// @Description Newest first, paginated
// @Tags Products
// @Produce json
// @Param page query int false "Page (1-1000000)" default(1)
// @Param limit query int false "Page size (1-100)" default(10)
// @Success 200 {object} model.ProductListResponse
// @Failure 400 {object} Response
// @Router /products [get]
func (s *RestHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", constant.DefaultPage)
	if err != nil || page < 1 || page > constant.MaxPage {
		writeError(w, errors.SetCustomErrorMessage(constant.ErrInvalidRequest, "page: between 1 and 1000000"))
		return
	}
	limit, err := queryInt(r, "limit", constant.DefaultLimit)
	if err != nil || limit < 1 || limit > constant.MaxLimit {
		writeError(w, errors.SetCustomErrorMessage(constant.ErrInvalidRequest, "limit: between 1 and 100"))
		return
	}

	res, err := s.ProductApp.List(r.Context(), page, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, res)
}

// SearchProducts handler
// @Summary Search products
// @Description Filters are ANDed, free-text search is ORed across fields. Unknown fields and operators are ignored.
// @Tags Products
// @Accept json
// @Produce json
// @Param request body model.ProductSearchRequest false "Search Request"
// @Success 200 {object} model.ProductListResponse
// @Failure 400 {object} Response
// @Router /products/search [post]
func (s *RestHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	req := model.NewProductSearchRequest()

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil && !stderrors.Is(err, io.EOF) {
		writeError(w, errors.SetCustomErrorMessage(constant.ErrInvalidRequest, "invalid JSON body"))
		return
	}
	if err := validatorx.ValidateStruct(&req); err != nil {
		writeError(w, errors.SetCustomErrorMessage(constant.ErrInvalidRequest, validatorx.Message(err)))
		return
	}

	res, err := s.ProductApp.Search(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, res)
}

// GetProduct handler
// @Summary Get product
// @Tags Products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} model.ProductEntity
// @Failure 404 {object} Response
// @Router /products/{id} [get]
func (s *RestHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	res, err := s.ProductApp.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, res)
}

// CreateProduct handler
// @Summary Create product
// @Tags Products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.CreateProductRequest true "Product"
// @Success 201 {object} model.ProductEntity
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Failure 403 {object} Response
// @Router /products [post]
func (s *RestHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req model.CreateProductRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	actor, _ := utilsContext.GetUser(r.Context())
	res, err := s.ProductApp.Create(r.Context(), actor, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccessStatus(w, http.StatusCreated, res)
}

// UpdateProduct handler
// @Summary Update product
// @Description Partial update: only the supplied fields change
// @Tags Products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Param request body model.UpdateProductRequest true "Fields to change"
// @Success 200 {object} model.ProductEntity
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Router /products/{id} [put]
func (s *RestHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateProductRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := s.ProductApp.Update(r.Context(), mux.Vars(r)["id"], &req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, res)
}

// DeleteProduct handler
// @Summary Delete product
// @Description Removes the product and its stored images
// @Tags Products
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /products/{id} [delete]
func (s *RestHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.ProductApp.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, nil)
}

// AttachImages handler
// @Summary Attach images to a product
// @Description Accepts JSON {images:[...]} with existing URLs, or multipart "files" to upload and attach
// @Tags Products
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Param request body model.AttachImagesRequest false "Image URLs"
// @Success 200 {object} model.ProductEntity
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Router /products/{id}/images [post]
func (s *RestHandler) AttachImages(w http.ResponseWriter, r *http.Request) {
	var urls []string

	if isMultipart(r) {
		uploaded, ok := s.saveUploads(w, r)
		if !ok {
			return
		}
		urls = uploaded.URLs
	} else {
		var req model.AttachImagesRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}
		urls = req.Images
	}

	res, err := s.ProductApp.AttachImages(r.Context(), mux.Vars(r)["id"], urls)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, res)
}

// RemoveImage handler
// @Summary Remove an image from a product
// @Tags Products
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Param image_url query string true "Image URL to remove"
// @Success 200 {object} model.ProductEntity
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Router /products/{id}/images [delete]
func (s *RestHandler) RemoveImage(w http.ResponseWriter, r *http.Request) {
	imageURL := r.URL.Query().Get("image_url")
	if imageURL == "" {
		writeError(w, errors.SetCustomErrorMessage(constant.ErrInvalidRequest, "image_url: required"))
		return
	}

	res, err := s.ProductApp.RemoveImage(r.Context(), mux.Vars(r)["id"], imageURL)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, res)
}

// UploadImage handler
// @Summary Upload images
// @Description Multipart field "files", one or more image/* parts
// @Tags Upload
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param files formData file true "Images"
// @Success 200 {object} model.UploadResponse
// @Failure 400 {object} Response
// @Router /upload/image [post]
func (s *RestHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	res, ok := s.saveUploads(w, r)
	if !ok {
		return
	}

	writeSuccess(w, res)
}

// GetUpload handler
// @Summary Download an uploaded file
// @Tags Upload
// @Produce octet-stream
// @Param filename path string true "Stored file name"
// @Success 200 {file} file
// @Failure 404 {object} Response
// @Router /upload/{filename} [get]
func (s *RestHandler) GetUpload(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["filename"]
	f, err := s.UploadApp.Open(name)
	if err != nil {
		writeError(w, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(w, err)
		return
	}

	http.ServeContent(w, r, name, info.ModTime(), f)
}

func (s *RestHandler) saveUploads(w http.ResponseWriter, r *http.Request) (*model.UploadResponse, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.Config.Upload.MaxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			writeError(w, errors.SetCustomErrorMessage(constant.ErrInvalidRequest, "upload too large"))
			return nil, false
		}
		writeError(w, errors.SetCustomErrorMessage(constant.ErrInvalidRequest, "invalid multipart body"))
		return nil, false
	}
	defer r.MultipartForm.RemoveAll()

	res, err := s.UploadApp.SaveImages(r.Context(), r.MultipartForm.File["files"])
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return res, true
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}
