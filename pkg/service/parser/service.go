// pkg/service/parser/service.go
package parser

import (
	"context"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Service 把评论的 Markdown 文本转换为安全的 HTML
type Service struct {
	mdParser goldmark.Markdown
	policy   *bluemonday.Policy
}

// NewService 创建一个新的解析服务实例。
// 评论来自匿名访客，不开启 goldmark 的 Unsafe 选项，原始 HTML 会被丢弃，再经过 UGC 策略过滤一遍。
func NewService() *Service {
	mdParser := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM, extension.Linkify, extension.Strikethrough,
		),
		goldmark.WithRendererOptions(gmhtml.WithHardWraps(), gmhtml.WithXHTML()),
	)

	policy := bluemonday.UGCPolicy()
	policy.RequireNoFollowOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	policy.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code", "pre", "span")

	return &Service{
		mdParser: mdParser,
		policy:   policy,
	}
}

// ToHTML 将 Markdown 文本转换为安全的HTML。
func (s *Service) ToHTML(_ context.Context, content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", nil
	}

	var buf strings.Builder
	if err := s.mdParser.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	return s.policy.Sanitize(buf.String()), nil
}

// SanitizeHTML 仅对传入的HTML字符串进行XSS安全过滤。
func (s *Service) SanitizeHTML(htmlContent string) string {
	return s.policy.Sanitize(htmlContent)
}
