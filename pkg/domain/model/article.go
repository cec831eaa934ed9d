/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2025-07-25 10:47:59
 * @LastEditTime: 2026-10-12 21:20:41
 * @LastEditors: 安知鱼
 */
package model

// Article 是评论子系统所关心的文章局部视图。
// 文章本身的增删改不在本服务内，这里只读取存储键并回写评论聚合数。
type Article struct {
	ID           int    // 文章编号，评论的 PostID 指向它
	StorageKey   string // 存储主键，用于拼接永久链接
	Title        string
	CommentCount int // 派生字段：已发布评论数，只能由聚合重算写入
}
