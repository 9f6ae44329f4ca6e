package tokenizer

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// 在包初始化时设置离线加载器
func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// EncodingName 使用的 BPE 编码
const EncodingName = "cl100k_base"

// TiktokenSplitter 以 tiktoken token 为单位切分文本
type TiktokenSplitter struct {
	encoding *tiktoken.Tiktoken
	mu       sync.Mutex
}

var (
	tiktokenInstance *TiktokenSplitter
	tiktokenOnce     sync.Once
	tiktokenErr      error
)

// GetTiktokenSplitter 获取 TiktokenSplitter 单例，避免重复加载编码文件
func GetTiktokenSplitter() (*TiktokenSplitter, error) {
	tiktokenOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(EncodingName)
		if err != nil {
			tiktokenErr = err
			return
		}
		tiktokenInstance = &TiktokenSplitter{encoding: enc}
	})

	if tiktokenErr != nil {
		return nil, tiktokenErr
	}
	return tiktokenInstance, nil
}

// Split 将文本切分为 token 单元，拼接后与原文逐字节相同
// 多字节字符被拆在多个 token 中时，这些 token 合并为一个单元，保证每个单元都是合法 UTF-8
func (s *TiktokenSplitter) Split(text string) []string {
	if text == "" {
		return nil
	}

	s.mu.Lock()
	ids := s.encoding.Encode(text, nil, nil)
	pieces := make([]string, len(ids))
	for i, id := range ids {
		pieces[i] = s.encoding.Decode([]int{id})
	}
	s.mu.Unlock()

	units := make([]string, 0, len(pieces))
	var pending string
	for _, p := range pieces {
		pending += p
		if utf8.ValidString(pending) {
			units = append(units, pending)
			pending = ""
		}
	}
	if pending != "" {
		units = append(units, pending)
	}
	return units
}

// Count 计算文本的 token 数量
func (s *TiktokenSplitter) Count(text string) int {
	if text == "" {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.encoding.Encode(text, nil, nil))
}

// Unit 返回单位名称
func (s *TiktokenSplitter) Unit() string {
	return "tokens"
}
