package segment

import "unicode/utf8"

// Sequence 是一次排版独占的可变片段序列。排版引擎通过游标推进，
// 切分字符串字面量时会在游标处插入新片段，因此不能当作只读迭代器使用。
type Sequence struct {
	items []string
}

// NewSequence 复制 parts 构造新序列，调用方持有的切片不会被修改。
func NewSequence(parts []string) *Sequence {
	return &Sequence{items: append([]string(nil), parts...)}
}

func (s *Sequence) Len() int { return len(s.items) }

func (s *Sequence) At(i int) string { return s.items[i] }

func (s *Sequence) Set(i int, v string) { s.items[i] = v }

// Insert 在 i 处插入 v，原 i 及之后的元素后移一位。
// 游标若指向 i，插入后指向新元素，语义位置保持不变。
func (s *Sequence) Insert(i int, v string) {
	s.items = append(s.items, "")
	copy(s.items[i+1:], s.items[i:])
	s.items[i] = v
}

func (s *Sequence) Clone() *Sequence { return NewSequence(s.items) }

// Items 返回当前内容的副本。
func (s *Sequence) Items() []string { return append([]string(nil), s.items...) }

// Remaining 统计 from 之后所有片段的字符数。
func (s *Sequence) Remaining(from int) int {
	n := 0
	for i := from; i < len(s.items); i++ {
		n += utf8.RuneCountInString(s.items[i])
	}
	return n
}
