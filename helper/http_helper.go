package helper

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"site-cms/models"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/sirupsen/logrus"
)

const (
	textError = `error`
	textOk    = `ok`
)

// ResponseHelper ...
type ResponseHelper struct {
	C        *gin.Context
	Status   string
	Message  interface{}
	Data     interface{}
	Code     int // http status
	CodeType string
}

// HTTPHelper ...
type HTTPHelper struct {
	Validate   *validator.Validate
	Translator ut.Translator
	Log        logrus.FieldLogger
}

// NewHTTPHelper wires english translations into gin's validator so
// binding errors read as sentences.
func NewHTTPHelper(log logrus.FieldLogger) *HTTPHelper {
	h := &HTTPHelper{Log: log}
	english := en.New()
	h.Translator, _ = ut.New(english, english).GetTranslator("en")

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		h.Validate = v
		if err := en_translations.RegisterDefaultTranslations(v, h.Translator); err != nil {
			log.WithError(err).Warn("Failed to register validator translations")
		}
	}
	return h
}

// SetResponse ...
// Set response data.
func (u *HTTPHelper) SetResponse(c *gin.Context, status string, message interface{}, data interface{}, code int, codeType string) ResponseHelper {
	return ResponseHelper{c, status, message, data, code, codeType}
}

// SendError ...
// Send error response to consumers.
func (u *HTTPHelper) SendError(c *gin.Context, message string, data interface{}, code int, codeType string) error {
	res := u.SetResponse(c, textError, message, data, code, codeType)

	return u.SendResponse(res)
}

// SendBadRequest ...
// Send bad request response to consumers.
func (u *HTTPHelper) SendBadRequest(c *gin.Context, message string, data interface{}) error {
	return u.SendError(c, message, data, http.StatusBadRequest, `badRequest`)
}

// SendBindError sends validator failures field by field and anything else
// as a plain bad request.
func (u *HTTPHelper) SendBindError(c *gin.Context, err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return u.SendValidationError(c, validationErrors)
	}
	return u.SendBadRequest(c, err.Error(), u.EmptyJsonMap())
}

// SendValidationError ...
// Send validation error response to consumers.
func (u *HTTPHelper) SendValidationError(c *gin.Context, validationErrors validator.ValidationErrors) error {
	errorResponse := map[string][]string{}
	var errorTranslation validator.ValidationErrorsTranslations
	if u.Translator != nil {
		errorTranslation = validationErrors.Translate(u.Translator)
	}
	for _, err := range validationErrors {
		errKey := Underscore(err.StructField())
		msg, ok := errorTranslation[err.Namespace()]
		if !ok {
			msg = err.Error()
		}
		errorResponse[errKey] = append(errorResponse[errKey], msg)
	}

	res := u.SetResponse(c, textError, errorResponse, u.EmptyJsonMap(), http.StatusBadRequest, `validationError`)
	return u.SendResponse(res)
}

// SendUnauthorizedError ...
// Send unauthorized response to consumers.
func (u *HTTPHelper) SendUnauthorizedError(c *gin.Context, message string, data interface{}) error {
	return u.SendError(c, message, data, http.StatusUnauthorized, `unAuthorized`)
}

func (u *HTTPHelper) SendForbiddenError(c *gin.Context, message string, data interface{}) error {
	return u.SendError(c, message, data, http.StatusForbidden, `forbidden`)
}

// SendNotFoundError ...
// Send not found response to consumers.
func (u *HTTPHelper) SendNotFoundError(c *gin.Context, message string, data interface{}) error {
	return u.SendError(c, message, data, http.StatusNotFound, `notFound`)
}

// SendAppError maps a service error onto its status code. Errors that are
// not *models.AppError are logged and hidden behind a generic 500.
func (u *HTTPHelper) SendAppError(c *gin.Context, err error) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		appErr = models.NewInternalError("internal server error", err)
	}

	status, codeType := u.GetStatusCode(appErr)
	if status >= http.StatusInternalServerError && u.Log != nil {
		u.Log.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"kind":   appErr.Kind,
		}).WithError(err).Error("Request failed")
	}

	data := u.EmptyJsonMap()
	if appErr.Reason != "" {
		data["reason"] = appErr.Reason
	}
	if len(appErr.Fields) > 0 {
		data["fields"] = appErr.Fields
	}

	message := appErr.Message
	if appErr.Kind == models.KindInternal {
		message = "internal server error"
	}
	return u.SendError(c, message, data, status, codeType)
}

// GetStatusCode ...
func (u *HTTPHelper) GetStatusCode(err *models.AppError) (int, string) {
	switch err.Kind {
	case models.KindValidation:
		return http.StatusBadRequest, `validationError`
	case models.KindLink:
		return linkStatus(err.Reason), `linkError`
	case models.KindInvalidStateTransition:
		return http.StatusBadRequest, `invalidStateTransition`
	case models.KindPublish:
		return http.StatusBadRequest, `publishError`
	case models.KindNotFound:
		return http.StatusNotFound, `notFound`
	case models.KindUnauthorized:
		return http.StatusUnauthorized, `unAuthorized`
	case models.KindForbidden:
		return http.StatusForbidden, `forbidden`
	case models.KindConflict:
		return http.StatusConflict, `conflict`
	case models.KindStorage:
		return http.StatusInternalServerError, `storageError`
	}
	return http.StatusInternalServerError, `internalError`
}

func linkStatus(reason models.LinkReason) int {
	switch reason {
	case models.LinkNotFound:
		return http.StatusNotFound
	case models.LinkExpired:
		return http.StatusGone
	case models.LinkInactive:
		return http.StatusForbidden
	case models.LinkLimitReached:
		return http.StatusTooManyRequests
	case models.LinkBadPassword:
		return http.StatusUnauthorized
	}
	return http.StatusBadRequest
}

// SendSuccess ...
// Send success response to consumers.
func (u *HTTPHelper) SendSuccess(c *gin.Context, message string, data interface{}) error {
	res := u.SetResponse(c, textOk, message, data, http.StatusOK, `success`)

	return u.SendResponse(res)
}

func (u *HTTPHelper) SendCreated(c *gin.Context, message string, data interface{}) error {
	res := u.SetResponse(c, textOk, message, data, http.StatusCreated, `created`)

	return u.SendResponse(res)
}

// SendResponse ...
// Send response
func (u *HTTPHelper) SendResponse(res ResponseHelper) error {
	if s, ok := res.Message.(string); ok && len(s) == 0 {
		res.Message = `success`
	}

	res.C.JSON(res.Code, map[string]interface{}{
		"code":         res.Code,
		"code_type":    res.CodeType,
		"code_message": res.Message,
		"data":         res.Data,
	})
	return nil
}

func (u *HTTPHelper) EmptyJsonMap() map[string]interface{} {
	return make(map[string]interface{})
}

// get pagination URL
func (u *HTTPHelper) GetPagingUrl(c *gin.Context, page, limit int) string {
	r := c.Request
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	currentURL := scheme + "://" + r.Host + r.URL.Path + "?page=" + strconv.Itoa(page) + "&limit=" + strconv.Itoa(limit)
	return currentURL
}

// Set paginantion response
func (u *HTTPHelper) GeneratePaging(c *gin.Context, limit, page, totalRecord int) map[string]interface{} {
	prevURL, nextURL, firstURL, lastURL := "", "", "", ""

	totalPages := int(math.Ceil(float64(totalRecord) / float64(limit)))

	if totalPages >= page && page > 1 {
		prevURL = u.GetPagingUrl(c, page-1, limit)
		firstURL = u.GetPagingUrl(c, 1, limit)
	}

	if totalPages > page {
		nextURL = u.GetPagingUrl(c, page+1, limit)
	}

	if totalPages >= page && totalPages != page {
		lastURL = u.GetPagingUrl(c, totalPages, limit)
	}

	links := map[string]interface{}{
		"previous": prevURL,
		"next":     nextURL,
		"first":    firstURL,
		"last":     lastURL,
	}

	pagination := map[string]interface{}{
		"total_records": totalRecord,
		"per_page":      limit,
		"current_page":  page,
		"total_pages":   totalPages,
		"links":         links,
	}

	return pagination
}

// SendPaginated wraps items with the paging block.
func (u *HTTPHelper) SendPaginated(c *gin.Context, message string, items interface{}, page, limit int, total int64) error {
	return u.SendSuccess(c, message, map[string]interface{}{
		"items":      items,
		"pagination": u.GeneratePaging(c, limit, page, int(total)),
	})
}
