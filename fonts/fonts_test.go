package fonts

import "testing"

func TestLoadBuiltin(t *testing.T) {
	for _, name := range []string{"gomono", "embed:gomono-bold", "GoMono-Italic", ""} {
		data, err := Load(name)
		if err != nil {
			t.Fatalf("加载 %q 失败: %v", name, err)
		}
		if len(data) == 0 {
			t.Fatalf("字体 %q 为空", name)
		}
	}
}

func TestLoadUnknown(t *testing.T) {
	if _, err := Load("Inter-Regular"); err == nil {
		t.Fatalf("未知字体应返回错误")
	}
}

func TestNamesSorted(t *testing.T) {
	names := Names()
	if len(names) != 3 || names[0] != "gomono" || names[2] != "gomono-italic" {
		t.Fatalf("unexpected names: %v", names)
	}
}
