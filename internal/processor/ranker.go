package processor

import (
	"sort"
	"strings"

	"resume-match-go/internal/types"
)

// Rank 对匹配结果去重、过滤并排序
// 按归一化邮箱（小写、去空白）分组，组内保留总分最高的一条，
// 同分保留先出现的。没有邮箱的简历无法归并到任何人，各自独立保留。
// 之后过滤掉总分不大于minScore的条目（必须严格大于才通过），
// 最后按总分降序排列。调用方须保证传入结果已按租户过滤。
func Rank(results []types.MatchResult, minScore float64) []types.MatchResult {
	bestIdx := make(map[string]int, len(results))
	order := make([]string, 0, len(results))

	for i, r := range results {
		key := strings.ToLower(strings.TrimSpace(r.Email))
		if key == "" {
			key = "resume:" + r.ResumeID
		}

		j, seen := bestIdx[key]
		if !seen {
			bestIdx[key] = i
			order = append(order, key)
		} else if r.OverallScore > results[j].OverallScore {
			bestIdx[key] = i
		}
	}

	kept := make([]types.MatchResult, 0, len(order))
	for _, key := range order {
		r := results[bestIdx[key]]
		if r.OverallScore > minScore {
			kept = append(kept, r)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].OverallScore > kept[j].OverallScore
	})
	return kept
}
