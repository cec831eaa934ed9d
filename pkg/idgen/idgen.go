/*
 * @Description: ID 生成和解码服务
 * @Author: 安知鱼
 * @Date: 2025-06-17 20:38:15
 * @LastEditTime: 2026-10-13 09:40:02
 * @LastEditors: 安知鱼
 */
package idgen

import (
	"fmt"
	mrand "math/rand"
	"sync"

	"github.com/sqids/sqids-go"
)

var (
	sqidsEncoder *sqids.Sqids
	encoderMu    sync.RWMutex
)

// DefaultAlphabet 是默认的字母表
const DefaultAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// EntityType 定义了不同实体在生成公共 ID 时的类型标识。
const (
	EntityTypeArticle uint64 = 8  // 文章实体的类型标识
	EntityTypeComment uint64 = 11 // 评论实体的类型标识
)

// shuffleAlphabet 使用种子打乱字母表
func shuffleAlphabet(seed string) string {
	var seedInt int64
	for i, c := range seed {
		seedInt += int64(c) * int64(i+1)
	}

	// 使用确定性随机数生成器，同一种子总是得到同一字母表
	r := mrand.New(mrand.NewSource(seedInt))

	alphabet := []rune(DefaultAlphabet)
	r.Shuffle(len(alphabet), func(i, j int) {
		alphabet[i], alphabet[j] = alphabet[j], alphabet[i]
	})

	return string(alphabet)
}

// InitSqidsEncoder 初始化 Sqids 编码器（使用默认字母表）
func InitSqidsEncoder() error {
	return InitSqidsEncoderWithSeed("")
}

// InitSqidsEncoderWithSeed 使用种子初始化 Sqids 编码器。
// 如果 seed 为空字符串，则使用默认字母表
func InitSqidsEncoderWithSeed(seed string) error {
	alphabet := DefaultAlphabet
	if seed != "" {
		alphabet = shuffleAlphabet(seed)
	}

	s, err := sqids.New(
		sqids.Options{
			MinLength: 4,
			Alphabet:  alphabet,
		},
	)
	if err != nil {
		return fmt.Errorf("初始化 Sqids 编码器失败: %w", err)
	}

	encoderMu.Lock()
	sqidsEncoder = s
	encoderMu.Unlock()
	return nil
}

func encoder() (*sqids.Sqids, error) {
	encoderMu.RLock()
	defer encoderMu.RUnlock()
	if sqidsEncoder == nil {
		return nil, fmt.Errorf("Sqids 编码器未初始化")
	}
	return sqidsEncoder, nil
}

// GeneratePublicID 把数据库ID与实体类型编码为对外公开的短ID。
func GeneratePublicID(dbID uint, entityType uint64) (string, error) {
	enc, err := encoder()
	if err != nil {
		return "", err
	}

	id, err := enc.Encode([]uint64{uint64(dbID), entityType})
	if err != nil {
		return "", fmt.Errorf("编码公共ID失败: %w", err)
	}
	return id, nil
}

// DecodePublicID 解码公共 ID
func DecodePublicID(publicID string) (dbID uint, entityType uint64, err error) {
	enc, err := encoder()
	if err != nil {
		return 0, 0, err
	}

	numbers := enc.Decode(publicID)
	if len(numbers) != 2 {
		return 0, 0, fmt.Errorf("无法从公共ID解码出预期数量的数字(期望2个，得到%d个)", len(numbers))
	}

	return uint(numbers[0]), numbers[1], nil
}

// DecodeCommentID 解码评论公共ID，并校验实体类型。
func DecodeCommentID(publicID string) (uint, error) {
	dbID, entityType, err := DecodePublicID(publicID)
	if err != nil {
		return 0, err
	}
	if entityType != EntityTypeComment {
		return 0, fmt.Errorf("公共ID '%s' 不是评论ID", publicID)
	}
	return dbID, nil
}
