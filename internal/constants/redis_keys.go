package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// ResumeModulePrefix 简历模块
	ResumeModulePrefix = "resume"
	// JDModulePrefix 职位描述模块
	JDModulePrefix = "jd"

	// EntityDedupSet 去重集合实体
	EntityDedupSet = "dedup_set"
	// EntityVector 向量实体
	EntityVector = "vector"

	// KeyResumeDedupSet 租户级简历去重集合 (SET)，成员为 filename|candidateID
	// 格式: app:resume:dedup_set:{userID}
	KeyResumeDedupSet = AppPrefix + ":" + ResumeModulePrefix + ":" + EntityDedupSet + ":%s"

	// KeyJDCategoryVectors JD类别向量缓存 (HASH，字段: model/data)
	// 格式: app:jd:vector:{jdTextMD5}
	KeyJDCategoryVectors = AppPrefix + ":" + JDModulePrefix + ":" + EntityVector + ":%s"
)
