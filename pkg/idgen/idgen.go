/*
 * @Description: 修订键（document key）生成服务
 * @Author: 安知鱼
 * @Date: 2025-06-17 20:38:15
 * @LastEditTime: 2025-10-16 15:12:48
 * @LastEditors: 安知鱼
 */
package idgen

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	mrand "math/rand"
	"strconv"
	"sync"

	"github.com/sqids/sqids-go"
)

// sqidsEncoder 是用于生成修订键的 Sqids 编码器实例。
var (
	sqidsEncoder *sqids.Sqids
	encoderMu    sync.RWMutex
	defaultOnce  sync.Once
)

// DefaultAlphabet 是默认的字母表
const DefaultAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// MaxRevisionIDLength 是文档服务器允许的修订键最大长度
const MaxRevisionIDLength = 20

// GenerateRandomSeed 生成一个随机的 16 字节种子（返回 32 字符的十六进制字符串）
func GenerateRandomSeed() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("生成随机种子失败: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

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

// InitSqidsEncoder 使用默认字母表初始化编码器
func InitSqidsEncoder() error {
	return InitSqidsEncoderWithSeed("")
}

// InitSqidsEncoderWithSeed 使用种子初始化 Sqids 编码器。
// 修改种子会使所有已签发的修订键失效，编辑器会把同一文件视为新文档。
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

func encoder() *sqids.Sqids {
	defaultOnce.Do(func() {
		encoderMu.RLock()
		ready := sqidsEncoder != nil
		encoderMu.RUnlock()
		if !ready {
			if err := InitSqidsEncoder(); err != nil {
				panic(err)
			}
		}
	})
	encoderMu.RLock()
	defer encoderMu.RUnlock()
	return sqidsEncoder
}

// GenerateRevisionID 根据任意字符串生成确定性的修订键。
// 相同输入总是得到相同的键，结果只包含字母和数字，长度不超过 MaxRevisionIDLength。
func GenerateRevisionID(expected string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(expected))
	sum := h.Sum64()

	id, err := encoder().Encode([]uint64{sum >> 32, sum & 0xffffffff})
	if err != nil || id == "" {
		// sqids 在极少数屏蔽词冲突时会失败，此时退回 36 进制
		id = strconv.FormatUint(sum, 36)
	}
	if len(id) > MaxRevisionIDLength {
		id = id[:MaxRevisionIDLength]
	}
	return id
}
