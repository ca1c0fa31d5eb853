package intent

import (
	"fmt"
	"strings"

	"github.com/suPer8Hu/profile-assistant/internal/profile"
)

func pick(lang Language, en, zh string) string {
	if lang == English {
		return en
	}
	return zh
}

func loadingText(lang Language) string {
	return pick(lang,
		"Loading profile data, please try again later...",
		"抱歉，我正在加载主人的资料，请稍后再试...")
}

func noInfoText(p *profile.Record, lang Language) string {
	return pick(lang,
		fmt.Sprintf("Sorry, I don't have that information about %s yet.", p.Basics.Name),
		fmt.Sprintf("抱歉，我暂时没有%s这方面的信息。", p.Basics.Name))
}

func identityReply(p *profile.Record, lang Language) (string, bool) {
	b := p.Basics
	return pick(lang,
		fmt.Sprintf("Hi! I'm %s's AI assistant. %s is a %s. %s", b.Name, b.Name, b.Title, b.Summary),
		fmt.Sprintf("你好！我叫小助手，是%s的AI助理。我的主人%s是一位%s。%s", b.Name, b.Name, b.Title, b.Summary),
	), true
}

func skillsReply(p *profile.Record, lang Language) (string, bool) {
	if len(p.Skills) == 0 {
		return "", false
	}
	return pick(lang,
		fmt.Sprintf("%s's skills include: %s", p.Basics.Name, strings.Join(p.Skills, ", ")),
		fmt.Sprintf("我的主人%s精通以下技能：%s", p.Basics.Name, strings.Join(p.Skills, "、")),
	), true
}

func workReply(p *profile.Record, lang Language) (string, bool) {
	if len(p.Experience) == 0 {
		return "", false
	}
	latest := p.Experience[0]
	return pick(lang,
		fmt.Sprintf("%s currently works at %s as %s. Main responsibilities include %s",
			p.Basics.Name, latest.Company, latest.Position, latest.Description),
		fmt.Sprintf("目前，我的主人%s在%s担任%s职位。他主要负责%s",
			p.Basics.Name, latest.Company, latest.Position, latest.Description),
	), true
}

var approachHeaders = map[string][2]string{
	profile.ApproachCommunication: {"%s's approach to stakeholder communication:", "%s与相关方的沟通方式："},
	profile.ApproachConflict:      {"%s's conflict resolution approach:", "%s的冲突处理方式："},
	profile.ApproachLeadership:    {"%s's leadership style:", "%s的领导风格："},
	profile.ApproachPressure:      {"%s's stress management approach:", "%s的压力管理方式："},
	profile.ApproachChallenge:     {"A challenging project %s handled:", "%s处理过的一个挑战性项目："},
	profile.ApproachFailure:       {"%s's approach to handling failures:", "%s处理失败的方式："},
}

func approachReply(category string) renderFunc {
	return func(p *profile.Record, lang Language) (string, bool) {
		points, ok := p.Points(category)
		if !ok {
			return "", false
		}
		h := approachHeaders[category]
		header := fmt.Sprintf(pick(lang, h[0], h[1]), p.Basics.Name)
		return header + "\n\n" + enumerate(points), true
	}
}

func educationReply(p *profile.Record, lang Language) (string, bool) {
	if len(p.Education) == 0 {
		return "", false
	}
	entries := make([]string, 0, len(p.Education))
	for _, e := range p.Education {
		entries = append(entries, fmt.Sprintf("%s (%s)\n   • %s", e.Institution, e.Period, e.Degree))
	}
	header := fmt.Sprintf(pick(lang, "%s's education background:", "%s的教育背景："), p.Basics.Name)
	return header + "\n\n" + strings.Join(entries, "\n\n"), true
}

func certificationsReply(p *profile.Record, lang Language) (string, bool) {
	if len(p.Certifications) == 0 {
		return "", false
	}
	items := make([]string, 0, len(p.Certifications))
	for _, c := range p.Certifications {
		label := c.Name
		if c.URL != "" {
			label = fmt.Sprintf("[%s](%s)", c.Name, c.URL)
		}
		items = append(items, fmt.Sprintf("%s (%s)", label, c.Date))
	}
	header := fmt.Sprintf(pick(lang, "%s's recent certifications:", "%s最近获得的专业认证："), p.Basics.Name)
	return header + "\n\n" + enumerate(items), true
}

// enumerate renders items as a 1-indexed list, one per line, in stored order.
func enumerate(items []string) string {
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, it)
	}
	return b.String()
}

var menuEN = []string{
	`"Who is she?"`,
	`"What are her skills?"`,
	`"What's her work experience?"`,
	`"How does she communicate with stakeholders?"`,
	`"How does she handle conflicts?"`,
	`"What's her leadership style?"`,
	`"How does she handle pressure?"`,
	`"Tell me about a challenging project"`,
	`"How does she deal with failures?"`,
	`"What's her educational background?"`,
	`"What certifications does she have?"`,
}

var menuZH = []string{
	`"能介绍一下你的主人吗？"`,
	`"他有什么专业技能？"`,
	`"说说他的工作经历"`,
	`"他是如何与相关方沟通的？"`,
	`"他如何处理冲突？"`,
	`"他的领导风格是怎样的？"`,
	`"他如何应对压力？"`,
	`"讲讲他处理过的挑战性项目"`,
	`"他如何处理失败？"`,
	`"他的教育背景是什么？"`,
	`"他获得了哪些专业认证？"`,
}

func menuText(p *profile.Record, lang Language) string {
	if lang == English {
		return fmt.Sprintf("I'm an AI assistant who can answer questions about %s. You can ask me about:\n%s",
			p.Basics.Name, enumerate(menuEN))
	}
	return fmt.Sprintf("你好！我是%s的AI助理，很高兴为你服务！\n\n你可以问我这些问题：\n%s",
		p.Basics.Name, enumerate(menuZH))
}
