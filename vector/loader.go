package vector

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/rushteam/shopsense/core"
)

// Load 从离线构建产物加载 Embedding 表。
//
//   - vectorsPath：.npy（float32/float64，小端，C 顺序，二维）或 .json（二维数组）
//   - idsPath：JSON 字符串数组，第 i 个 ID 对应第 i 行向量
//
// 行数与 ID 数不一致返回 DATA_INCONSISTENCY，属于启动期致命错误。
func Load(vectorsPath, idsPath string) (*Store, error) {
	ids, err := LoadIDs(idsPath)
	if err != nil {
		return nil, err
	}
	rows, err := LoadVectors(vectorsPath)
	if err != nil {
		return nil, err
	}
	if len(rows) != len(ids) {
		return nil, core.NewDomainError(core.ModuleVector, core.ErrorCodeDataInconsistency,
			fmt.Sprintf("vector: %d vectors but %d product ids", len(rows), len(ids)))
	}
	entries := make([]Entry, len(ids))
	for i := range ids {
		entries[i] = Entry{ID: ids[i], Vector: rows[i]}
	}
	return NewStore(entries)
}

// LoadIDs 读取商品 ID 列表。
func LoadIDs(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read product ids: %w", err)
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("parse product ids: %w", err)
	}
	return ids, nil
}

// LoadVectors 按扩展名读取向量矩阵。
func LoadVectors(path string) ([][]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vectors: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		var rows [][]float32
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, fmt.Errorf("parse vectors json: %w", err)
		}
		return rows, nil
	default:
		return ParseNPY(bytes.NewReader(data))
	}
}

var (
	npyMagic  = []byte("\x93NUMPY")
	descrRe   = regexp.MustCompile(`'descr'\s*:\s*'([^']+)'`)
	fortranRe = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	shapeRe   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

// ParseNPY 解析 numpy .npy 格式的二维浮点矩阵。
func ParseNPY(r io.Reader) ([][]float32, error) {
	magic := make([]byte, len(npyMagic)+2)
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("npy: read magic: %w", err)
	}
	if !bytes.Equal(magic[:len(npyMagic)], npyMagic) {
		return nil, fmt.Errorf("npy: bad magic")
	}

	var headerLen int
	switch major := magic[len(npyMagic)]; major {
	case 1:
		var n uint16
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("npy: read header length: %w", err)
		}
		headerLen = int(n)
	case 2, 3:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("npy: read header length: %w", err)
		}
		headerLen = int(n)
	default:
		return nil, fmt.Errorf("npy: unsupported version %d", major)
	}

	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("npy: read header: %w", err)
	}
	descr, rows, cols, err := parseNPYHeader(string(header))
	if err != nil {
		return nil, err
	}

	var width int
	var order binary.ByteOrder = binary.LittleEndian
	switch descr {
	case "<f4", "|f4", "=f4":
		width = 4
	case "<f8", "|f8", "=f8":
		width = 8
	case ">f4":
		width, order = 4, binary.BigEndian
	case ">f8":
		width, order = 8, binary.BigEndian
	default:
		return nil, fmt.Errorf("npy: unsupported dtype %q", descr)
	}

	if cols > 0 && rows > math.MaxInt/width/cols {
		return nil, badShape(fmt.Sprintf("npy: shape (%d, %d) too large", rows, cols))
	}
	need := rows * cols * width
	// 按实际读到的字节分配，头部声明的形状不可信
	buf, err := io.ReadAll(io.LimitReader(r, int64(need)))
	if err != nil {
		return nil, fmt.Errorf("npy: read data: %w", err)
	}
	if len(buf) < need {
		return nil, badShape(fmt.Sprintf("npy: shape (%d, %d) needs %d bytes, file has %d", rows, cols, need, len(buf)))
	}
	out := make([][]float32, rows)
	for i := 0; i < rows; i++ {
		row := make([]float32, cols)
		for j := 0; j < cols; j++ {
			off := (i*cols + j) * width
			if width == 4 {
				row[j] = math.Float32frombits(order.Uint32(buf[off:]))
			} else {
				row[j] = float32(math.Float64frombits(order.Uint64(buf[off:])))
			}
		}
		out[i] = row
	}
	return out, nil
}

func parseNPYHeader(header string) (descr string, rows, cols int, err error) {
	m := descrRe.FindStringSubmatch(header)
	if m == nil {
		return "", 0, 0, fmt.Errorf("npy: header missing descr")
	}
	descr = m[1]
	if f := fortranRe.FindStringSubmatch(header); f != nil && f[1] == "True" {
		return "", 0, 0, fmt.Errorf("npy: fortran order not supported")
	}
	s := shapeRe.FindStringSubmatch(header)
	if s == nil {
		return "", 0, 0, fmt.Errorf("npy: header missing shape")
	}
	dims := make([]int, 0, 2)
	for _, part := range strings.Split(s[1], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, convErr := strconv.Atoi(part)
		if convErr != nil || n < 0 {
			return "", 0, 0, badShape(fmt.Sprintf("npy: bad shape (%s)", s[1]))
		}
		dims = append(dims, n)
	}
	if len(dims) != 2 {
		return "", 0, 0, fmt.Errorf("npy: expected 2-D array, got shape (%s)", s[1])
	}
	return descr, dims[0], dims[1], nil
}

func badShape(msg string) error {
	return core.NewDomainError(core.ModuleVector, core.ErrorCodeDataInconsistency, msg)
}
