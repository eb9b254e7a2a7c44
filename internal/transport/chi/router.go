package chi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface is implemented by Server; one method per route.
type ServerInterface interface {
	// (GET /)
	Root(w http.ResponseWriter, r *http.Request)
	// (GET /status)
	GetStatus(w http.ResponseWriter, r *http.Request)
	// (GET /tf_idf_similarity/{companyId})
	TfIdfSimilarity(w http.ResponseWriter, r *http.Request, companyID int64, params SimilarityParams)
	// (GET /semantic_similarity/{companyId})
	SemanticSimilarity(w http.ResponseWriter, r *http.Request, companyID int64, params SimilarityParams)
	// (GET /dense_vector_similarity/{companyId})
	DenseVectorSimilarity(w http.ResponseWriter, r *http.Request, companyID int64, params SimilarityParams)
	// (GET /health)
	HealthCheck(w http.ResponseWriter, r *http.Request)
	// (GET /metrics)
	Metrics(w http.ResponseWriter, r *http.Request)
}

// InvalidParamFormatError reports a parameter that failed to bind.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error { return e.Err }

// ServerInterfaceWrapper binds path and query parameters before calling the handler.
type ServerInterfaceWrapper struct {
	Handler          ServerInterface
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

type similarityHandler func(w http.ResponseWriter, r *http.Request, companyID int64, params SimilarityParams)

func (siw *ServerInterfaceWrapper) similarity(h similarityHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var companyID int64
		err := runtime.BindStyledParameterWithOptions("simple", "companyId", chi.URLParam(r, "companyId"), &companyID,
			runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
		if err != nil {
			siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "companyId", Err: err})
			return
		}

		var params SimilarityParams
		if err := runtime.BindQueryParameter("form", true, false, "page", r.URL.Query(), &params.Page); err != nil {
			siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "page", Err: err})
			return
		}
		if err := runtime.BindQueryParameter("form", true, false, "size", r.URL.Query(), &params.Size); err != nil {
			siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "size", Err: err})
			return
		}

		h(w, r, companyID, params)
	}
}

// ChiServerOptions configures HandlerWithOptions.
type ChiServerOptions struct {
	// BaseURL prefixes the API routes. /health and /metrics are always served at the root.
	BaseURL          string
	BaseRouter       chi.Router
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// HandlerWithOptions mounts the API on a chi router.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{
		Handler:          si,
		ErrorHandlerFunc: options.ErrorHandlerFunc,
	}

	base := strings.TrimRight(options.BaseURL, "/")
	r.Group(func(r chi.Router) {
		r.Get(base+"/", si.Root)
		r.Get(base+"/status", si.GetStatus)
		r.Get(base+"/tf_idf_similarity/{companyId}", wrapper.similarity(si.TfIdfSimilarity))
		r.Get(base+"/semantic_similarity/{companyId}", wrapper.similarity(si.SemanticSimilarity))
		r.Get(base+"/dense_vector_similarity/{companyId}", wrapper.similarity(si.DenseVectorSimilarity))
	})
	r.Get("/health", si.HealthCheck)
	r.Get("/metrics", si.Metrics)

	return r
}
