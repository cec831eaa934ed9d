// pkg/handler/comment/dto/dto.go
package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/anzhiyu-c/anheyu-comment/pkg/domain/model"
)

// ListRequest 是评论列表接口解析后的查询参数。
type ListRequest struct {
	CurrentPage int
	PageSize    int
	Keyword     string
	// PostID 只要请求中出现就生效，包括 0
	PostID *int
	// State 保留原始字符串，只有 "0"、"1"、"2" 会被采用
	State string
	Sort  int
	// Privileged 表示调用方已通过管理员鉴权
	Privileged bool
}

// CreateRequest 定义了创建评论的API请求体。
type CreateRequest struct {
	// 评论所属的文章编号，0 表示关于页
	PostID int `json:"post_id"`

	// 父评论的公共ID，顶级评论为空
	PID *string `json:"pid"`

	// 评论者信息，既可以是对象，也可以是序列化后的 JSON 字符串
	Author AuthorField `json:"author"`

	// 评论的 Markdown 原文内容
	Content string `json:"content" binding:"required,max=2000"`

	// 请求头中没有 User-Agent 时才使用
	Agent string `json:"agent"`
}

// UpdateRequest 定义了修改评论的API请求体，state 与 post_ids 必填。
type UpdateRequest struct {
	State   *int        `json:"state"`
	PostIDs PostIDs     `json:"post_ids"`
	Author  AuthorField `json:"author"`
	Content *string     `json:"content"`
}

// AuthorField 兼容两种作者写法：对象，或序列化后的 JSON 字符串
type AuthorField struct {
	Value *model.Author
}

// UnmarshalJSON 实现 json.Unmarshaler
func (a *AuthorField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil
		}
		data = []byte(raw)
	}

	var author model.Author
	if err := json.Unmarshal(data, &author); err != nil {
		return fmt.Errorf("author 格式错误: %w", err)
	}
	a.Value = &author
	return nil
}

// PostIDs 兼容数字、数字字符串以及它们组成的数组，
// 无法解析的元素会被忽略。Present 记录请求中是否出现了该字段。
type PostIDs struct {
	Values  []int
	Present bool
}

// UnmarshalJSON 实现 json.Unmarshaler
func (p *PostIDs) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	p.Present = true
	p.Values = collectPostIDs(raw)
	return nil
}

func collectPostIDs(v interface{}) []int {
	switch x := v.(type) {
	case json.Number:
		if n, err := strconv.Atoi(x.String()); err == nil {
			return []int{n}
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(x)); err == nil {
			return []int{n}
		}
	case []interface{}:
		var ids []int
		for _, item := range x {
			ids = append(ids, collectPostIDs(item)...)
		}
		return ids
	}
	return nil
}

// AuthorResponse 是作者信息的输出结构，邮箱只对管理员可见
type AuthorResponse struct {
	Name  string  `json:"name"`
	Email *string `json:"email,omitempty"`
	Site  string  `json:"site,omitempty"`
}

// Response 定义了单条评论的API响应结构。
type Response struct {
	ID          string         `json:"id"`
	PostID      int            `json:"post_id"`
	PID         *string        `json:"pid,omitempty"`
	Author      AuthorResponse `json:"author"`
	Content     string         `json:"content"`
	ContentHTML string         `json:"content_html"`
	State       int            `json:"state"`
	Likes       int            `json:"likes"`
	Agent       string         `json:"agent,omitempty"`
	City        string         `json:"city,omitempty"`
	Country     string         `json:"country,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`

	// --- 仅限管理员视图的字段 ---
	IP    *string `json:"ip,omitempty"`
	Range *string `json:"range,omitempty"`
}

// Pagination 是列表接口的分页信息
type Pagination struct {
	Total       int64 `json:"total"`
	CurrentPage int   `json:"current_page"`
	TotalPage   int   `json:"total_page"`
	PerPage     int   `json:"per_page"`
}

// ListResponse 定义了评论列表的API响应结构。
type ListResponse struct {
	Pagination Pagination  `json:"pagination"`
	Data       []*Response `json:"data"`
}
