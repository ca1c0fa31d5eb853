package intent

import (
	"strings"

	"github.com/suPer8Hu/profile-assistant/internal/profile"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type Language string

const (
	English Language = "en"
	Chinese Language = "zh"
)

type Topic string

const (
	TopicIdentity       Topic = "identity"
	TopicSkills         Topic = "skills"
	TopicWork           Topic = "work"
	TopicCommunication  Topic = "communication"
	TopicConflict       Topic = "conflict"
	TopicLeadership     Topic = "leadership"
	TopicPressure       Topic = "pressure"
	TopicChallenge      Topic = "challenge"
	TopicFailure        Topic = "failure"
	TopicEducation      Topic = "education"
	TopicCertifications Topic = "certifications"

	// TopicMenu is reported when no keyword group matched.
	TopicMenu Topic = "menu"
	// TopicLoading is reported when the profile is not loaded.
	TopicLoading Topic = "loading"
)

type Reply struct {
	Text     string   `json:"text"`
	Language Language `json:"language"`
	Topic    Topic    `json:"topic"`
}

// renderFunc returns false when the profile lacks the data the topic needs.
type renderFunc func(p *profile.Record, lang Language) (string, bool)

type rule struct {
	topic Topic
	en    []string
	zh    []string
	reply renderFunc
}

func (r rule) matches(normalized string) bool {
	return containsAny(normalized, r.en) || containsAny(normalized, r.zh)
}

// rules is evaluated top to bottom; the first match wins.
// A keyword must not appear in more than one rule.
var rules = []rule{
	{
		topic: TopicIdentity,
		en:    []string{"who are you", "who is", "introduce", "name"},
		zh:    []string{"介绍", "你是谁", "叫什么"},
		reply: identityReply,
	},
	{
		topic: TopicSkills,
		en:    []string{"skill", "what can you do"},
		zh:    []string{"技能", "专长"},
		reply: skillsReply,
	},
	{
		topic: TopicWork,
		en:    []string{"work", "experience", "job"},
		zh:    []string{"工作", "经历", "经验"},
		reply: workReply,
	},
	{
		topic: TopicCommunication,
		en:    []string{"communicate", "communication", "stakeholder"},
		zh:    []string{"沟通", "交流"},
		reply: approachReply(profile.ApproachCommunication),
	},
	{
		topic: TopicConflict,
		en:    []string{"conflict", "disagreement"},
		zh:    []string{"冲突", "分歧"},
		reply: approachReply(profile.ApproachConflict),
	},
	{
		topic: TopicLeadership,
		en:    []string{"leadership", "team"},
		zh:    []string{"领导", "团队"},
		reply: approachReply(profile.ApproachLeadership),
	},
	{
		topic: TopicPressure,
		en:    []string{"pressure", "stress"},
		zh:    []string{"压力", "紧张"},
		reply: approachReply(profile.ApproachPressure),
	},
	{
		topic: TopicChallenge,
		en:    []string{"challenge", "challenging", "difficult"},
		zh:    []string{"挑战", "困难"},
		reply: approachReply(profile.ApproachChallenge),
	},
	{
		topic: TopicFailure,
		en:    []string{"failure", "failed", "mistake"},
		zh:    []string{"失败", "错误"},
		reply: approachReply(profile.ApproachFailure),
	},
	{
		topic: TopicEducation,
		en:    []string{"education", "study", "studied", "degree", "university"},
		zh:    []string{"学历", "教育", "学习"},
		reply: educationReply,
	},
	{
		topic: TopicCertifications,
		en:    []string{"certification", "certificate"},
		zh:    []string{"证书", "认证"},
		reply: certificationsReply,
	},
}

var greetings = []string{"hi", "hello"}

// englishTriggers is the fixed keyword set that selects an English reply.
var englishTriggers = func() []string {
	out := append([]string(nil), greetings...)
	for _, r := range rules {
		out = append(out, r.en...)
	}
	return out
}()

// Topics lists the recognised topics in priority order.
func Topics() []Topic {
	out := make([]Topic, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.topic)
	}
	return out
}

// Respond maps a visitor utterance to a canned reply about p.
// p may be nil while the profile is still loading. Respond does no I/O and
// always returns the same Reply for the same inputs.
func Respond(p *profile.Record, utterance string) Reply {
	normalized := cases.Lower(language.Und).String(utterance)
	lang := SelectLanguage(normalized)

	if p == nil {
		return Reply{Text: loadingText(lang), Language: lang, Topic: TopicLoading}
	}

	for _, r := range rules {
		if !r.matches(normalized) {
			continue
		}
		text, ok := r.reply(p, lang)
		if !ok {
			text = noInfoText(p, lang)
		}
		return Reply{Text: text, Language: lang, Topic: r.topic}
	}
	return Reply{Text: menuText(p, lang), Language: lang, Topic: TopicMenu}
}

// SelectLanguage picks English when the lower-cased utterance contains any
// English trigger keyword and Chinese otherwise. It is a keyword test, not
// language detection.
func SelectLanguage(normalized string) Language {
	if containsAny(normalized, englishTriggers) {
		return English
	}
	return Chinese
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
