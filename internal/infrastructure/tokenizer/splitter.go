package tokenizer

import "fmt"

// Splitter 把文本切成可逐一拼回原文的单元
type Splitter interface {
	Split(text string) []string
	Count(text string) int
	Unit() string
}

// NewSplitter 按配置的单位创建切分器
func NewSplitter(unit string) (Splitter, error) {
	switch unit {
	case "", "tokens":
		s, err := GetTiktokenSplitter()
		if err != nil {
			return nil, fmt.Errorf("failed to load %s encoding: %w", EncodingName, err)
		}
		return s, nil
	case "characters":
		return RuneSplitter{}, nil
	default:
		return nil, fmt.Errorf("unknown chunk unit %q", unit)
	}
}
