package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// NewFakeElastic 启动模拟 Elasticsearch 的测试服务器
// go-elasticsearch v8 会校验 X-Elastic-Product 响应头
func NewFakeElastic(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}
