// Package facts extracts normalized key/value facts from document prose
// and table cells (§4.3), the inputs the rule executors and AI rule
// driver reason over instead of re-parsing raw text.
package facts

// Key is a canonical fact identity; Synonyms lists the surface forms a
// document may use for it, longest-first isn't required — the extractor
// tries every synonym per key.
type Key struct {
	Name     string
	Synonyms []string
}

// Keys is the full extractable fact catalog, grouped the way the source
// review process groups them: identity, scale, earthwork, schedule,
// investment, six-indicator inputs, and prediction inputs.
var Keys = []Key{
	{"项目名称", []string{"项目名称", "工程名称", "建设项目名称"}},
	{"建设单位", []string{"建设单位", "业主单位"}},
	{"建设地点", []string{"建设地点", "项目位置", "项目地址"}},
	{"项目代码", []string{"项目代码", "统一社会信用代码"}},

	{"总占地面积", []string{"总占地", "总占地面积", "项目占地"}},
	{"永久占地", []string{"永久占地", "永久占地面积"}},
	{"临时占地", []string{"临时占地", "临时占地面积"}},
	{"扰动面积", []string{"扰动面积", "扰动土地面积"}},
	{"损毁植被面积", []string{"损毁植被", "损毁植被面积"}},
	{"防治责任范围面积", []string{"防治责任范围", "防治责任范围面积"}},

	{"挖方", []string{"挖方", "挖方量", "开挖量"}},
	{"填方", []string{"填方", "填方量", "回填量"}},
	{"借方", []string{"借方", "借土量"}},
	{"弃方", []string{"弃方", "弃方量", "弃渣量"}},
	{"外运量", []string{"外运", "外运量", "弃方外运"}},

	{"施工期起", []string{"施工期", "施工开始", "开工时间"}},
	{"施工期止", []string{"施工期", "施工结束", "竣工时间"}},
	{"设计水平年", []string{"设计水平年", "水平年"}},

	{"静态投资", []string{"静态投资", "工程投资", "总投资"}},
	{"水土保持投资", []string{"水土保持投资", "水保投资"}},

	{"治理达标面积", []string{"治理达标面积", "达标面积"}},
	{"水土流失总面积", []string{"水土流失总面积", "流失总面积"}},
	{"防治措施面积", []string{"防治措施面积", "措施面积"}},
	{"渣土防护量", []string{"渣土防护量", "防护量"}},
	{"渣土总量", []string{"渣土总量", "总渣土量"}},
	{"表土保护量", []string{"表土保护量", "保护表土量"}},
	{"可剥离表土量", []string{"可剥离表土量", "可剥离量"}},
	{"恢复面积", []string{"恢复面积", "已恢复面积"}},
	{"可恢复面积", []string{"可恢复面积", "应恢复面积"}},
	{"植被覆盖面积", []string{"植被覆盖面积", "覆盖面积"}},
	{"可绿化面积", []string{"可绿化面积", "应绿化面积"}},

	{"分区面积", []string{"分区面积", "预测分区面积"}},
	{"时段", []string{"时段", "预测时段"}},
	{"侵蚀模数", []string{"侵蚀模数", "侵蚀强度"}},

	{"是否弃渣", []string{"弃渣", "弃方", "弃土"}},
	{"是否临时用地", []string{"临时用地", "临时占地"}},
	{"是否消纳场", []string{"消纳场", "专门存放地"}},
}
