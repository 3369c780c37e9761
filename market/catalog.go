package market

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"polymarket-liquidity-go/clob"
)

// CatalogSource 市场目录的数据来源；与 clob.RESTClient 对接。
type CatalogSource interface {
	SamplingMarkets(ctx context.Context, cursor string) (clob.MarketsPage, error)
}

// Info 一个启用流动性奖励的市场及其可读描述。
type Info struct {
	ConditionID string
	Description string
	Active      bool
	Closed      bool
	Tokens      []clob.MarketToken
	Rewards     clob.RewardParams
}

// Quotable 市场当前可报价。
func (i Info) Quotable() bool {
	return i.Active && !i.Closed && len(i.Tokens) > 0
}

// Catalog 拉取并缓存启用奖励的 sampling 市场目录。
type Catalog struct {
	src CatalogSource

	markets []Info
}

func NewCatalog(src CatalogSource) *Catalog {
	return &Catalog{src: src}
}

// Refresh 翻页拉全市场目录并重建缓存。
func (c *Catalog) Refresh(ctx context.Context) error {
	var all []Info
	cursor := ""
	for {
		page, err := c.src.SamplingMarkets(ctx, cursor)
		if err != nil {
			return fmt.Errorf("fetch sampling markets: %w", err)
		}
		for _, m := range page.Data {
			all = append(all, Info{
				ConditionID: m.ConditionID,
				Description: describe(m),
				Active:      m.Active,
				Closed:      m.Closed,
				Tokens:      m.Tokens,
				Rewards:     m.Rewards,
			})
		}
		if page.NextCursor == "" || page.NextCursor == clob.EndCursor || len(page.Data) == 0 {
			c.markets = all
			return nil
		}
		cursor = page.NextCursor
	}
}

// Markets 返回缓存目录的副本。
func (c *Catalog) Markets() []Info {
	out := make([]Info, len(c.markets))
	copy(out, c.markets)
	return out
}

// Lookup 按 condition id 查找市场。
func (c *Catalog) Lookup(conditionID string) (Info, bool) {
	for _, m := range c.markets {
		if m.ConditionID == conditionID {
			return m, true
		}
	}
	return Info{}, false
}

// Search 按描述子串（大小写不敏感）过滤，结果按描述排序。
func (c *Catalog) Search(query string) []Info {
	query = strings.ToLower(query)
	var out []Info
	for _, m := range c.markets {
		if strings.Contains(strings.ToLower(m.Description), query) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Description < out[j].Description })
	return out
}

// describe 用 outcome 列表合成可读名称；接口本身不带标题。
func describe(m clob.SimplifiedMarket) string {
	outcomes := make([]string, 0, len(m.Tokens))
	for _, t := range m.Tokens {
		outcomes = append(outcomes, t.Outcome)
	}
	suffix := m.ConditionID
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	return fmt.Sprintf("Market %s - Outcomes: %s", suffix, strings.Join(outcomes, ", "))
}
