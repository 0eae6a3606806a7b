package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anzhiyu-c/anheyu-docs/pkg/constant"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{constant.NewSizeError(), http.StatusBadRequest},
		{fmt.Errorf("%w: x", constant.ErrBadRequest), http.StatusBadRequest},
		{fmt.Errorf("%w: x", constant.ErrConfigBuild), http.StatusBadRequest},
		{fmt.Errorf("%w: x", constant.ErrInvalidToken), http.StatusUnauthorized},
		{fmt.Errorf("%w: x", constant.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: x", constant.ErrMissingHistoryData), http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: x", constant.ErrRemoteFetch), http.StatusBadGateway},
		{fmt.Errorf("%w: x", constant.ErrConvert), http.StatusBadGateway},
		{fmt.Errorf("%w: x", constant.ErrIO), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFromError(tt.err), tt.err.Error())
	}
}

func TestFailWithError_ValidationReason(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	FailWithError(c, "上传失败", constant.NewTypeError())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Code    int               `json:"code"`
		Message string            `json:"message"`
		Data    map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, http.StatusBadRequest, body.Code)
	assert.Contains(t, body.Message, "上传失败")
	assert.Equal(t, constant.ReasonType, body.Data["reason"])
}
