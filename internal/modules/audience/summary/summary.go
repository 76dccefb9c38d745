// Package summary turns a round's result rows into per-field top-K distributions.
package summary

import (
	"sort"
	"strconv"

	types "github.com/yungbote/audience-backend/internal/domain"
	"github.com/yungbote/audience-backend/internal/domain/audience"
)

// DefaultTopK is the number of values kept verbatim per field; the rest fold into "Other".
const DefaultTopK = 5

type bucket struct {
	value string
	count int
}

// Summarize builds one distribution per field. Percentages are relative to len(rows), so rows
// with a blank value for a field still count toward that field's total.
func Summarize(rows []types.ContactRow, fields []string, k int) types.Summary {
	out := make(types.Summary, len(fields))
	for _, field := range fields {
		out[field] = distribution(rows, field, k)
	}
	return out
}

func distribution(rows []types.ContactRow, field string, k int) types.Distribution {
	dist := types.Distribution{}
	total := len(rows)
	if total == 0 {
		return dist
	}

	index := map[string]int{}
	buckets := make([]bucket, 0, 16)
	for _, row := range rows {
		v := audience.ValueText(row[field])
		if v == "" {
			continue
		}
		i, ok := index[v]
		if !ok {
			i = len(buckets)
			index[v] = i
			buckets = append(buckets, bucket{value: v})
		}
		buckets[i].count++
	}

	// first-seen order survives among equal counts
	sort.SliceStable(buckets, func(i, j int) bool { return buckets[i].count > buckets[j].count })

	if k < 0 {
		k = 0
	}
	rest := 0
	for i, b := range buckets {
		if i < k {
			dist = append(dist, entry(b.value, b.count, total))
			continue
		}
		rest += b.count
	}
	if rest > 0 {
		dist = append(dist, entry(audience.OtherValue, rest, total))
	}
	return dist
}

func entry(value string, count, total int) types.DistributionEntry {
	return types.DistributionEntry{
		Value:      value,
		Count:      count,
		Percentage: Percentage(count, total),
	}
}

// Percentage renders count/total*100 with two decimals.
func Percentage(count, total int) string {
	if total <= 0 {
		return "0.00"
	}
	return strconv.FormatFloat(float64(count)/float64(total)*100, 'f', 2, 64)
}
