package parser

import (
	"strings"

	"resume-match-go/internal/types"
)

// CategorizeJD 把职位描述按行归入五个类别
// 维护一个游标，初始指向summary。每个非空行先按关键词判断是否切换游标，
// 判断顺序固定为 responsibilit > skill > experience > education，
// 同时命中多个关键词的行按先匹配者归类。行本身追加到切换后的类别，
// 包括触发切换的标题行。纯关键词启发式，误分类由下游的跨类别聚合评分兜底。
func CategorizeJD(jdText string) map[string]string {
	categories := make(map[string]string, len(types.JDCategoryNames))
	for _, name := range types.JDCategoryNames {
		categories[name] = ""
	}

	current := types.CategorySummary
	for _, line := range strings.Split(jdText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		lower := strings.ToLower(line)
		switch {
		case strings.Contains(lower, "responsibilit"):
			current = types.CategoryResponsibilities
		case strings.Contains(lower, "skill"):
			current = types.CategorySkills
		case strings.Contains(lower, "experience"):
			current = types.CategoryExperience
		case strings.Contains(lower, "education"):
			current = types.CategoryEducation
		}

		categories[current] += " " + line
	}

	return categories
}
