package utility

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func TestRemoteGeoIPService_Lookup(t *testing.T) {
	tests := []struct {
		name        string
		ip          string
		status      int
		body        string
		wantNil     bool
		wantErr     bool
		wantCity    string
		wantCountry string
	}{
		{
			name:        "正常返回城市与国家",
			ip:          "8.8.8.8",
			status:      http.StatusOK,
			body:        `{"code":200,"data":{"country":"美国","province":"加利福尼亚","city":"山景城"}}`,
			wantCity:    "山景城",
			wantCountry: "美国",
		},
		{
			name:        "城市为空时使用省份",
			ip:          "1.2.3.4",
			status:      http.StatusOK,
			body:        `{"code":200,"data":{"country":"中国","province":"广东","city":""}}`,
			wantCity:    "广东",
			wantCountry: "中国",
		},
		{
			name:    "data 为字符串视为错误",
			ip:      "1.2.3.4",
			status:  http.StatusOK,
			body:    `{"code":200,"data":"unknown ip"}`,
			wantErr: true,
		},
		{
			name:    "负数错误码",
			ip:      "1.2.3.4",
			status:  http.StatusOK,
			body:    `{"code":-1,"msg":"token invalid"}`,
			wantErr: true,
		},
		{
			name:    "非 200 状态码",
			ip:      "1.2.3.4",
			status:  http.StatusBadGateway,
			body:    `oops`,
			wantErr: true,
		},
		{
			name:    "内网地址不发请求",
			ip:      "192.168.1.10",
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				if got := r.Header.Get("Authorization"); got != "Bearer secret" {
					t.Errorf("Authorization = %q", got)
				}
				if got := r.URL.Query().Get("ip"); got != tt.ip {
					t.Errorf("ip = %q, want %q", got, tt.ip)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			svc := newRemoteGeoIPService(server.URL, "secret")
			loc, err := svc.Lookup(context.Background(), tt.ip)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", loc)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantNil {
				if loc != nil {
					t.Fatalf("expected nil location, got %+v", loc)
				}
				if n := hits.Load(); n != 0 {
					t.Fatalf("expected no request, got %d", n)
				}
				return
			}
			if loc.City != tt.wantCity || loc.Country != tt.wantCountry {
				t.Errorf("got %+v, want city=%s country=%s", loc, tt.wantCity, tt.wantCountry)
			}
		})
	}
}

func TestNewGeoIPService(t *testing.T) {
	t.Run("未配置时返回空实现", func(t *testing.T) {
		svc, err := NewGeoIPService(GeoIPConfig{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		loc, err := svc.Lookup(context.Background(), "8.8.8.8")
		if loc != nil || err != nil {
			t.Fatalf("expected nil, nil; got %+v, %v", loc, err)
		}
	})

	t.Run("数据库文件不存在时报错", func(t *testing.T) {
		_, err := NewGeoIPService(GeoIPConfig{DBPath: filepath.Join(t.TempDir(), "missing.mmdb")})
		if err == nil {
			t.Fatal("expected error for missing database")
		}
	})

	t.Run("只有 URL 没有 Token 时不启用远程查询", func(t *testing.T) {
		svc, err := NewGeoIPService(GeoIPConfig{APIURL: "http://example.invalid"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := svc.(noopGeoIPService); !ok {
			t.Fatalf("expected noop service, got %T", svc)
		}
	})
}
