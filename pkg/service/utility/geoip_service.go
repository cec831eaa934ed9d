/*
 * @Description: IP地理位置查询服务，支持本地 MaxMind 数据库与远程API两种方式。
 * @Author: 安知鱼
 * @Date: 2025-07-25 16:15:59
 * @LastEditTime: 2026-01-24 13:53:14
 * @LastEditors: 安知鱼
 */
package utility

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oschwald/maxminddb-golang"

	"github.com/anzhiyu-c/anheyu-comment/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-comment/pkg/util"
)

// GeoIPService 定义了 IP 地理位置查询服务的统一接口。
type GeoIPService interface {
	// Lookup 查询 IP 地址的地理位置，无法识别的地址返回 nil, nil
	Lookup(ctx context.Context, ip string) (*model.GeoLocation, error)
	Close() error
}

// GeoIPConfig 决定使用哪一种查询后端，DBPath 优先
type GeoIPConfig struct {
	DBPath   string
	APIURL   string
	APIToken string
}

// NewGeoIPService 根据配置选择查询后端，两者都未配置时返回一个永远查不到结果的实现。
func NewGeoIPService(cfg GeoIPConfig) (GeoIPService, error) {
	if path := strings.TrimSpace(cfg.DBPath); path != "" {
		reader, err := maxminddb.Open(path)
		if err != nil {
			return nil, fmt.Errorf("打开 GeoIP 数据库 %s 失败: %w", path, err)
		}
		log.Printf("[IP属地查询] 使用本地数据库: %s", path)
		return &mmdbGeoIPService{reader: reader}, nil
	}

	apiURL := strings.TrimSpace(cfg.APIURL)
	apiToken := strings.TrimSpace(cfg.APIToken)
	if apiURL != "" && apiToken != "" {
		log.Printf("[IP属地查询] 使用远程API: %s", apiURL)
		return newRemoteGeoIPService(apiURL, apiToken), nil
	}

	log.Println("[IP属地查询] 未配置数据库或远程API，IP属地查询已关闭")
	return noopGeoIPService{}, nil
}

// shouldSkip 内网、回环和无法解析的地址不做查询
func shouldSkip(ip string) bool {
	parsed := net.ParseIP(ip)
	return parsed == nil || util.IsPrivateIP(ip)
}

// --- 本地 MaxMind 数据库 ---

type mmdbRecord struct {
	City struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"city"`
	Country struct {
		ISOCode string            `maxminddb:"iso_code"`
		Names   map[string]string `maxminddb:"names"`
	} `maxminddb:"country"`
}

type mmdbGeoIPService struct {
	reader *maxminddb.Reader
}

// Lookup 查询本地库，Range 使用命中的网段（CIDR）
func (s *mmdbGeoIPService) Lookup(_ context.Context, ip string) (*model.GeoLocation, error) {
	if shouldSkip(ip) {
		return nil, nil
	}

	var record mmdbRecord
	network, ok, err := s.reader.LookupNetwork(net.ParseIP(ip), &record)
	if err != nil {
		return nil, fmt.Errorf("查询 GeoIP 数据库失败: %w", err)
	}
	if !ok {
		return nil, nil
	}

	loc := &model.GeoLocation{
		City:    localizedName(record.City.Names),
		Country: record.Country.ISOCode,
	}
	if loc.Country == "" {
		loc.Country = localizedName(record.Country.Names)
	}
	if network != nil {
		loc.Range = network.String()
	}
	return loc, nil
}

func (s *mmdbGeoIPService) Close() error {
	return s.reader.Close()
}

// localizedName 优先中文名称，其次英文
func localizedName(names map[string]string) string {
	if name := names["zh-CN"]; name != "" {
		return name
	}
	return names["en"]
}

// --- 远程 API ---

// apiResponse 定义了远程 IP API 返回的 JSON 数据的结构。
// 注意：data 字段可能是对象（正常情况）或字符串（内网IP/无法识别的IP/错误信息），使用 json.RawMessage 处理
type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Msg     string          `json:"msg"` // 错误响应时使用 msg 字段
	Data    json.RawMessage `json:"data"`
}

// apiDataObject 定义了 data 字段为对象时的结构
type apiDataObject struct {
	Country  string `json:"country"`
	Province string `json:"province"`
	City     string `json:"city"`
}

// parseAPIData 解析 API 响应中的 data 字段，data 是字符串时返回错误
func parseAPIData(rawData json.RawMessage) (*apiDataObject, error) {
	if len(rawData) == 0 {
		return nil, fmt.Errorf("data 字段为空")
	}

	if rawData[0] == '"' {
		var dataStr string
		if err := json.Unmarshal(rawData, &dataStr); err == nil {
			if dataStr == "" {
				return nil, fmt.Errorf("无效的IP地址或内网IP")
			}
			return nil, fmt.Errorf("API返回错误: %s", dataStr)
		}
	}

	var dataObj apiDataObject
	if err := json.Unmarshal(rawData, &dataObj); err != nil {
		return nil, fmt.Errorf("解析 data 字段失败: %w", err)
	}
	return &dataObj, nil
}

type remoteGeoIPService struct {
	apiURL     string
	apiToken   string
	httpClient *http.Client
}

func newRemoteGeoIPService(apiURL, apiToken string) *remoteGeoIPService {
	return &remoteGeoIPService{
		apiURL:   apiURL,
		apiToken: apiToken,
		httpClient: &http.Client{
			Timeout: 5 * time.Second, // 为 API 请求设置5秒超时
		},
	}
}

// Lookup 通过远程 API 查询，使用 Bearer Token 认证
func (s *remoteGeoIPService) Lookup(ctx context.Context, ip string) (*model.GeoLocation, error) {
	if shouldSkip(ip) {
		return nil, nil
	}

	reqURL := fmt.Sprintf("%s?ip=%s", s.apiURL, url.QueryEscape(ip))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("创建 API 请求失败: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API 请求网络错误: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API 返回非 200 状态码: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	var result apiResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("解析API响应JSON失败: %w", err)
	}

	// code 为负数表示错误
	if result.Code < 0 {
		errMsg := result.Msg
		if errMsg == "" {
			errMsg = result.Message
		}
		return nil, fmt.Errorf("API错误: %s", errMsg)
	}
	if result.Code != 200 {
		return nil, fmt.Errorf("API 返回业务错误码: %d, 信息: %s", result.Code, result.Message)
	}

	dataObj, err := parseAPIData(result.Data)
	if err != nil {
		return nil, err
	}
	if dataObj.Country == "" && dataObj.City == "" && dataObj.Province == "" {
		return nil, nil
	}

	city := dataObj.City
	if city == "" {
		city = dataObj.Province
	}
	return &model.GeoLocation{City: city, Country: dataObj.Country}, nil
}

// Close 在这个实现中不需要做任何事，httpClient 不需要显式关闭
func (s *remoteGeoIPService) Close() error {
	return nil
}

type noopGeoIPService struct{}

func (noopGeoIPService) Lookup(context.Context, string) (*model.GeoLocation, error) { return nil, nil }
func (noopGeoIPService) Close() error                                               { return nil }
