package notification

import (
	"bytes"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/anzhiyu-c/anheyu-comment/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-comment/pkg/service/utility"
)

// mailTemplates 一类邮件的主题、纯文本和 HTML 模板
type mailTemplates struct {
	subject *texttemplate.Template
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

// mailData 是渲染邮件模板的数据
type mailData struct {
	SiteName    string
	Name        string
	Content     string
	ContentHTML htmltemplate.HTML // 已经过 bluemonday 过滤
	Permalink   string
}

var ownerTemplates = mailTemplates{
	subject: texttemplate.Must(texttemplate.New("owner_subject").Parse(`「{{.SiteName}}」有新的留言`)),
	text:    texttemplate.Must(texttemplate.New("owner_text").Parse(`来自 {{.Name}} 的留言：{{.Content}}{{if .Permalink}} {{.Permalink}}{{end}}`)),
	html: htmltemplate.Must(htmltemplate.New("owner_html").Parse(
		`<p>来自 {{.Name}} 的留言：</p>{{.ContentHTML}}<br>{{if .Permalink}}<a href="{{.Permalink}}" target="_blank">[ 点击查看 ]</a>{{end}}`)),
}

var replyTemplates = mailTemplates{
	subject: texttemplate.Must(texttemplate.New("reply_subject").Parse(`你在「{{.SiteName}}」的评论有新的回复`)),
	text:    texttemplate.Must(texttemplate.New("reply_text").Parse(`来自 {{.Name}} 的评论回复：{{.Content}}{{if .Permalink}} {{.Permalink}}{{end}}`)),
	html: htmltemplate.Must(htmltemplate.New("reply_html").Parse(
		`<p>来自 {{.Name}} 的评论回复：</p>{{.ContentHTML}}<br>{{if .Permalink}}<a href="{{.Permalink}}" target="_blank">[ 点击查看 ]</a>{{end}}`)),
}

func (s *Service) buildMessage(tpl mailTemplates, to string, comment *model.Comment, permalink string) (*utility.Message, error) {
	data := mailData{
		SiteName:    s.cfg.SiteName,
		Name:        comment.Author.Name,
		Content:     comment.Content,
		ContentHTML: htmltemplate.HTML(comment.ContentHTML),
		Permalink:   permalink,
	}
	if comment.ContentHTML == "" {
		// 没有渲染结果时退回到转义后的原文
		data.ContentHTML = htmltemplate.HTML("<p>" + htmltemplate.HTMLEscapeString(comment.Content) + "</p>")
	}

	var subject, text, html bytes.Buffer
	if err := tpl.subject.Execute(&subject, data); err != nil {
		return nil, err
	}
	if err := tpl.text.Execute(&text, data); err != nil {
		return nil, err
	}
	if err := tpl.html.Execute(&html, data); err != nil {
		return nil, err
	}
	return &utility.Message{
		To:       to,
		Subject:  subject.String(),
		TextBody: text.String(),
		HTMLBody: html.String(),
	}, nil
}
