package vector

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rushteam/shopsense/core"
)

// npyBytes 按 npy v1.0 格式拼出文件内容，shape 原样写入头部
func npyBytes(shape string, payload []byte) []byte {
	header := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': (%s), }", shape)
	// 头部总长度按 64 字节对齐，以换行结尾
	total := 10 + len(header) + 1
	if pad := total % 64; pad != 0 {
		header += string(bytes.Repeat([]byte(" "), 64-pad))
	}
	header += "\n"

	var buf bytes.Buffer
	buf.WriteString("\x93NUMPY")
	buf.Write([]byte{1, 0})
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(header)))
	buf.WriteString(header)
	buf.Write(payload)
	return buf.Bytes()
}

// writeNPY 按 npy v1.0 格式写出 float32 矩阵
func writeNPY(t *testing.T, path string, rows [][]float32) {
	t.Helper()
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	var payload bytes.Buffer
	for _, r := range rows {
		for _, x := range r {
			_ = binary.Write(&payload, binary.LittleEndian, math.Float32bits(x))
		}
	}
	data := npyBytes(fmt.Sprintf("%d, %d", len(rows), cols), payload.Bytes())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("写入 npy 失败: %v", err)
	}
}

func TestLoad_NPY(t *testing.T) {
	dir := t.TempDir()
	vecPath := filepath.Join(dir, "embeddings.npy")
	idsPath := filepath.Join(dir, "product_ids.json")
	writeNPY(t, vecPath, [][]float32{{1, 0}, {0, 2}, {3, 4}})
	if err := os.WriteFile(idsPath, []byte(`["a","b","c"]`), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(vecPath, idsPath)
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	if s.Len() != 3 || s.Dim() != 2 {
		t.Fatalf("期望 3x2，实际 %dx%d", s.Len(), s.Dim())
	}
	c, _ := s.Get("c")
	if math.Abs(float64(c[0])-0.6) > 1e-6 || math.Abs(float64(c[1])-0.8) > 1e-6 {
		t.Errorf("c 应被归一化为 (0.6, 0.8)，实际 %v", c)
	}
}

func TestLoad_JSON(t *testing.T) {
	dir := t.TempDir()
	vecPath := filepath.Join(dir, "embeddings.json")
	idsPath := filepath.Join(dir, "product_ids.json")
	_ = os.WriteFile(vecPath, []byte(`[[1,0],[0,1]]`), 0o644)
	_ = os.WriteFile(idsPath, []byte(`["a","b"]`), 0o644)

	s, err := Load(vecPath, idsPath)
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	if s.Len() != 2 {
		t.Errorf("期望 2 条，实际 %d", s.Len())
	}
}

func TestLoad_RowCountMismatch(t *testing.T) {
	dir := t.TempDir()
	vecPath := filepath.Join(dir, "embeddings.npy")
	idsPath := filepath.Join(dir, "product_ids.json")
	writeNPY(t, vecPath, [][]float32{{1, 0}, {0, 1}})
	_ = os.WriteFile(idsPath, []byte(`["a","b","c"]`), 0o644)

	_, err := Load(vecPath, idsPath)
	if !core.IsDataInconsistency(err) {
		t.Errorf("期望 DATA_INCONSISTENCY，实际 %v", err)
	}
}

func TestLoad_MissingFiles(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "x.npy"), filepath.Join(dir, "ids.json")); err == nil {
		t.Error("文件不存在时应返回错误")
	}
}

func TestParseNPY_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"bad magic", []byte("NOTNUMPY....")},
		{"truncated", []byte("\x93NUM")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseNPY(bytes.NewReader(tt.data)); err == nil {
				t.Error("应返回错误")
			}
		})
	}
}

func TestParseNPY_BadShape(t *testing.T) {
	tests := []struct {
		name  string
		shape string
	}{
		{"negative rows", "-1, 4"},
		{"negative cols", "2, -4"},
		{"overflow", "4611686018427387904, 4611686018427387904"},
		{"shape larger than data", "1000, 4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := npyBytes(tt.shape, make([]byte, 16))
			_, err := ParseNPY(bytes.NewReader(data))
			if !core.IsDataInconsistency(err) {
				t.Errorf("期望 DATA_INCONSISTENCY，实际 %v", err)
			}
		})
	}
}

func TestParseNPYHeader(t *testing.T) {
	descr, rows, cols, err := parseNPYHeader("{'descr': '<f8', 'fortran_order': False, 'shape': (12, 384), }")
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if descr != "<f8" || rows != 12 || cols != 384 {
		t.Errorf("解析结果错误: %s %d %d", descr, rows, cols)
	}
	if _, _, _, err := parseNPYHeader("{'descr': '<f4', 'fortran_order': True, 'shape': (2, 2), }"); err == nil {
		t.Error("fortran 顺序应被拒绝")
	}
	if _, _, _, err := parseNPYHeader("{'descr': '<f4', 'fortran_order': False, 'shape': (4,), }"); err == nil {
		t.Error("一维数组应被拒绝")
	}
}
