// Package handler 提供HTTP请求处理器
package handler

import (
	"net/http"

	"github.com/medschedulr/medschedulr/internal/constraints"
	"github.com/medschedulr/medschedulr/pkg/errors"
)

// RulesHandler 规则库处理器
type RulesHandler struct{}

// NewRulesHandler 创建规则库处理器
func NewRulesHandler() *RulesHandler {
	return &RulesHandler{}
}

// Library 返回求解器支持的全部规则定义
func (h *RulesHandler) Library(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET方法"))
		return
	}
	respondJSON(w, http.StatusOK, constraints.LibraryResponse{
		Library: constraints.GetLibrary(),
	})
}
