package supabase

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jmespath-community/go-jmespath"

	apperrors "github.com/purumi/purumi/internal/errors"
)

// The auth server has used several error body shapes across versions:
//
//	{"error":"invalid_grant","error_description":"Invalid login credentials"}
//	{"code":400,"error_code":"invalid_credentials","msg":"Invalid login credentials"}
//	{"message":"..."}
const (
	errMessageExpr = "error_description || msg || message || error"
	errCodeExpr    = "error_code || error"
)

const maxErrorBody = 64 << 10

// decodeError turns a non-2xx response into a *apperrors.BackendError.
func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	be := &apperrors.BackendError{Status: resp.StatusCode}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		be.Message = strings.TrimSpace(string(body))
		if be.Message == "" {
			be.Message = http.StatusText(resp.StatusCode)
		}
		return be
	}
	be.Message = searchString(errMessageExpr, doc)
	be.Code = searchString(errCodeExpr, doc)
	if be.Message == "" {
		be.Message = http.StatusText(resp.StatusCode)
	}
	return be
}

func searchString(expr string, doc any) string {
	v, err := jmespath.Search(expr, doc)
	if err != nil || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return fmt.Sprintf("%g", s)
	default:
		return ""
	}
}
