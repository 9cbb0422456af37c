package utils

// Label 是推荐链路中的一等公民：可解释、可追踪、可透传。
// Value 与 Source 的语义由各 Node 定义；这里只提供标准化的合并规则。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"` // recall / filter / rank / rerank ...
}

// 链路内置的 Label key
const (
	LabelRecallSource  = "recall_source"  // 召回来源（ann / cold_start）
	LabelCategoryMatch = "category_match" // "1" / "0"
	LabelPriceInRange  = "price_in_range" // "1" / "0"
	LabelPool          = "pool"           // primary / fallback
	LabelFiltered      = "filtered"       // 命中的过滤器名称
	LabelColdStart     = "cold_start"     // 请求级：无可用行为时为 "1"
)

// pool 取值
const (
	PoolPrimary  = "primary"
	PoolFallback = "fallback"
)

// BoolValue 把 bool 编码为 Label 值 "1" / "0"。
func BoolValue(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// MergeLabel 用于合并同名 Label，遵循“保留历史、可追踪”的默认策略。
// - Value: 以 '|' 累积
// - Source: 以 ',' 累积
func MergeLabel(existing Label, incoming Label) Label {
	if existing.Value == "" {
		return incoming
	}
	if incoming.Value == "" {
		return existing
	}

	merged := existing
	merged.Value = existing.Value + "|" + incoming.Value
	switch {
	case existing.Source == "":
		merged.Source = incoming.Source
	case incoming.Source == "":
		merged.Source = existing.Source
	default:
		merged.Source = existing.Source + "," + incoming.Source
	}
	return merged
}
