package tokenizer

// RuneSplitter 以字符为单位切分文本
type RuneSplitter struct{}

// Split 每个 rune 一个单元
func (RuneSplitter) Split(text string) []string {
	units := make([]string, 0, len(text))
	for _, r := range text {
		units = append(units, string(r))
	}
	return units
}

// Count 字符数
func (RuneSplitter) Count(text string) int {
	n := 0
	for range text {
		n++
	}
	return n
}

// Unit 返回单位名称
func (RuneSplitter) Unit() string {
	return "characters"
}
