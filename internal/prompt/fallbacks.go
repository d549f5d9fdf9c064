package prompt

import "strings"

var fallbacks = map[Category][]string{
	Landscapes: {
		"壮观的山脉日落，金色阳光穿过云层，照亮山峰，形成剪影效果，高清摄影",
		"宁静的湖泊清晨，薄雾笼罩，倒映着周围的树木和山脉，梦幻般的氛围",
		"冰雪覆盖的森林，阳光透过树枝间隙，形成光束，雪花缓缓飘落，冬日童话",
		"热带海滩日落，金色和紫色的天空，宁静的海浪轻抚沙滩，椰子树剪影",
	},
	Characters: {
		"神秘的女巫在古老森林中，被荧光植物环绕，手持法杖，细节丰富的写实风格",
		"未来战士，半机械化身体，站在城市废墟中，背景是霓虹灯光，赛博朋克风格",
		"古代将军身着精美盔甲，站在山顶眺望远方，战场迷雾缭绕，史诗般的氛围",
		"深海探险家在发光海洋生物环绕的海底遗迹中，佩戴高科技潜水设备，蓝色光芒",
	},
	Abstract: {
		"流动的颜色漩涡，混合蓝色、紫色和金色，如同宇宙星云，抽象表现主义",
		"几何形状构成的城市天际线，鲜艳的霓虹色调，数字艺术风格，简约主义",
		"分形艺术，无限递归的螺旋图案，渐变色彩，数学美学与艺术的结合",
		"液态金属流动形成的抽象雕塑，反射周围环境光线，超现实主义风格",
	},
	Animals: {
		"雄狮特写，金色眼睛注视前方，鬃毛在风中飘动，非洲大草原日落背景，野生动物摄影",
		"彩色蜂鸟悬停在热带花朵前，翅膀形成虚影，捕捉精细羽毛纹理，高速摄影",
		"北极狐在雪地中，白色皮毛与环境完美融合，只有蓝色眼睛突出，冬季荒原",
		"海底珊瑚礁中的章鱼，变换体色与纹理，与环境融为一体，海洋生物摄影",
	},
	Fantasy: {
		"漂浮在云端的古老城堡，瀑布从悬崖流下，彩虹桥连接，幻想艺术风格",
		"水晶森林，透明树木内部流动能量，发光的植物和奇幻生物，魔幻现实主义",
		"火龙在火山口盘旋，鳞片反射岩浆光芒，烟雾缭绕，史诗般的幻想场景",
		"魔法图书馆，书籍自行漂浮，螺旋楼梯通向无限高处，魔法粒子在空中闪烁",
	},
	SciFi: {
		"未来城市天际线，高耸的全息广告，飞行车穿梭，霓虹灯反射在雨水中，赛博朋克风格",
		"太空站环形结构，地球作为背景，阳光照射形成长阴影，科幻硬核风格",
		"机器人与人类在先进实验室合作，全息投影显示数据，未来主义设计，明亮冷色调",
		"外星景观，多重月亮悬挂天空，异形植物发光，奇怪构造的建筑，科幻概念艺术",
	},
}

// Fallbacks 内置备选提示词，最多返回 count 条
func Fallbacks(c Category, count int) []Idea {
	list, ok := fallbacks[c]
	if !ok {
		list = fallbacks[Landscapes]
	}
	if count < len(list) {
		list = list[:max(count, 0)]
	}

	ideas := make([]Idea, 0, len(list))
	for _, desc := range list {
		preview, _, _ := strings.Cut(desc, "，")
		ideas = append(ideas, Idea{Description: desc, PreviewPrompt: preview})
	}
	return ideas
}
