/*
 * @Description: 数据库表结构迁移
 * @Author: 安知鱼
 * @Date: 2025-12-08
 */
package database

import (
	"context"
	"fmt"
	"log"

	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// 表名与列名，sqlstore 与迁移共用
const (
	CommentsTable = "comments"
	ArticlesTable = "articles"

	ColID           = "id"
	ColPostID       = "post_id"
	ColParentID     = "parent_id"
	ColAuthorName   = "author_name"
	ColAuthorEmail  = "author_email"
	ColAuthorSite   = "author_site"
	ColContent      = "content"
	ColContentHTML  = "content_html"
	ColState        = "state"
	ColLikes        = "likes"
	ColIP           = "ip"
	ColAgent        = "agent"
	ColCity         = "city"
	ColCountry      = "country"
	ColRange        = "ip_range"
	ColCreatedAt    = "created_at"
	ColUpdatedAt    = "updated_at"
	ColStorageKey   = "storage_key"
	ColTitle        = "title"
	ColCommentCount = "comment_count"
)

var (
	commentsColumns = []*schema.Column{
		{Name: ColID, Type: field.TypeUint, Increment: true},
		{Name: ColPostID, Type: field.TypeInt, Default: 0},
		{Name: ColParentID, Type: field.TypeUint, Nullable: true},
		{Name: ColAuthorName, Type: field.TypeString, Size: 255},
		{Name: ColAuthorEmail, Type: field.TypeString, Size: 255},
		{Name: ColAuthorSite, Type: field.TypeString, Size: 512, Default: ""},
		{Name: ColContent, Type: field.TypeString, Size: 2147483647},
		{Name: ColContentHTML, Type: field.TypeString, Size: 2147483647},
		{Name: ColState, Type: field.TypeInt, Default: 1},
		{Name: ColLikes, Type: field.TypeInt, Default: 0},
		{Name: ColIP, Type: field.TypeString, Size: 64, Default: ""},
		{Name: ColAgent, Type: field.TypeString, Size: 512, Default: ""},
		{Name: ColCity, Type: field.TypeString, Size: 128, Default: ""},
		{Name: ColCountry, Type: field.TypeString, Size: 128, Default: ""},
		{Name: ColRange, Type: field.TypeString, Size: 64, Default: ""},
		{Name: ColCreatedAt, Type: field.TypeTime},
		{Name: ColUpdatedAt, Type: field.TypeTime},
	}
	commentsTable = &schema.Table{
		Name:       CommentsTable,
		Columns:    commentsColumns,
		PrimaryKey: []*schema.Column{commentsColumns[0]},
		Indexes: []*schema.Index{
			// 聚合重算按 post_id + state 分组计数
			{Name: "comment_post_id_state", Columns: []*schema.Column{commentsColumns[1], commentsColumns[8]}},
			{Name: "comment_parent_id", Columns: []*schema.Column{commentsColumns[2]}},
		},
	}

	articlesColumns = []*schema.Column{
		{Name: ColID, Type: field.TypeInt, Increment: true},
		{Name: ColStorageKey, Type: field.TypeString, Unique: true, Size: 255},
		{Name: ColTitle, Type: field.TypeString, Size: 255, Default: ""},
		{Name: ColCommentCount, Type: field.TypeInt, Default: 0},
	}
	articlesTable = &schema.Table{
		Name:       ArticlesTable,
		Columns:    articlesColumns,
		PrimaryKey: []*schema.Column{articlesColumns[0]},
	}

	// Tables 是本服务管理的全部表
	Tables = []*schema.Table{commentsTable, articlesTable}
)

// Migrate 在启动时自动迁移数据库结构，只会新增表、列和索引
func Migrate(ctx context.Context, db *DB) error {
	log.Println("⚡ 开始数据库表结构迁移...")
	migrate, err := schema.NewMigrate(entsql.OpenDB(db.Dialect, db.DB))
	if err != nil {
		return fmt.Errorf("创建迁移器失败: %w", err)
	}
	if err := migrate.Create(ctx, Tables...); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}
	log.Println("✅ 数据库表结构迁移成功")
	return nil
}
