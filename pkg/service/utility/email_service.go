// pkg/service/utility/email_service.go
package utility

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// ErrEmailNotConfigured 在未配置 SMTP 主机时由 Send 返回
var ErrEmailNotConfigured = errors.New("SMTP 未配置")

// Message 是一封待发送的邮件
type Message struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// EmailService 定义了发送邮件的能力，调用方只关心是否发送成功
type EmailService interface {
	Send(ctx context.Context, msg *Message) error
}

// SMTPConfig 是 SMTP 发信所需的配置
type SMTPConfig struct {
	Host        string
	Port        string
	Username    string
	Password    string
	SenderName  string
	SenderEmail string
	// ForceSSL 为 true 时直接建立 TLS 连接（通常是 465 端口），否则尝试 STARTTLS
	ForceSSL bool
}

// emailService 是 EmailService 基于 net/smtp 的实现
type emailService struct {
	cfg         SMTPConfig
	dialTimeout time.Duration
}

// NewEmailService 是 emailService 的构造函数
func NewEmailService(cfg SMTPConfig) EmailService {
	return &emailService{
		cfg:         cfg,
		dialTimeout: 15 * time.Second,
	}
}

// Send 发送一封 HTML 邮件
func (s *emailService) Send(ctx context.Context, msg *Message) error {
	if strings.TrimSpace(s.cfg.Host) == "" {
		return ErrEmailNotConfigured
	}
	if msg == nil || strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("收件人为空")
	}

	message := buildMessage(s.cfg, msg)
	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	var err error
	if s.cfg.ForceSSL {
		err = s.sendSSL(ctx, addr, auth, msg.To, message)
	} else {
		err = s.sendSTARTTLS(ctx, addr, auth, msg.To, message)
	}
	if err != nil {
		return fmt.Errorf("发送邮件到 %s 失败: %w", msg.To, err)
	}
	return nil
}

// buildMessage 组装邮件头与正文，头部顺序固定
func buildMessage(cfg SMTPConfig, msg *Message) []byte {
	body := msg.HTMLBody
	contentType := "text/html; charset=UTF-8"
	if body == "" {
		body = msg.TextBody
		contentType = "text/plain; charset=UTF-8"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", mime.QEncoding.Encode("utf-8", cfg.SenderName), cfg.SenderEmail)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: %s\r\n", contentType)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// sendSSL 是用于处理直接SSL连接的辅助函数
func (s *emailService) sendSSL(ctx context.Context, addr string, auth smtp.Auth, to string, message []byte) error {
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: s.dialTimeout},
		Config: &tls.Config{
			ServerName: s.cfg.Host,
			MinVersion: tls.VersionTLS12, // 最低支持TLS 1.2
		},
	}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("TLS拨号失败 (请检查端口是否正确，SSL通常使用465端口): %w", err)
	}
	return s.deliver(conn, auth, to, message, false)
}

// sendSTARTTLS 先建立明文连接，服务端支持时升级到 TLS
func (s *emailService) sendSTARTTLS(ctx context.Context, addr string, auth smtp.Auth, to string, message []byte) error {
	dialer := &net.Dialer{Timeout: s.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("拨号失败: %w", err)
	}
	return s.deliver(conn, auth, to, message, true)
}

func (s *emailService) deliver(conn net.Conn, auth smtp.Auth, to string, message []byte, tryStartTLS bool) error {
	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("创建SMTP客户端失败: %w", err)
	}
	defer client.Close()

	if tryStartTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err = client.StartTLS(&tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
				return fmt.Errorf("STARTTLS 失败: %w", err)
			}
		}
	}

	if auth != nil {
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP认证失败: %w", err)
		}
	}
	if err = client.Mail(s.cfg.SenderEmail); err != nil {
		return fmt.Errorf("设置发件人失败: %w", err)
	}
	if err = client.Rcpt(to); err != nil {
		return fmt.Errorf("设置收件人 %s 失败: %w", to, err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("获取数据写入器失败: %w", err)
	}
	if _, err = w.Write(message); err != nil {
		return fmt.Errorf("写入邮件内容失败: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("关闭写入器失败: %w", err)
	}

	if err := client.Quit(); err != nil {
		log.Printf("警告: SMTP client.Quit() 执行失败: %v。这通常不影响邮件发送。", err)
	}
	return nil
}
