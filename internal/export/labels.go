package export

import (
	"strconv"
	"strings"
)

// Labels are the human-readable strings the projectors print around exam content.
// Patterns use {n}, {duration}, {count}, {score} and {total} placeholders.
type Labels struct {
	Lang              string
	QuestionHeading   string // "Câu {n}:"
	DocumentMeta      string // "Thời gian làm bài: {duration} | Số lượng câu hỏi: {count}"
	PageMeta          string // "Thời gian: {duration} | Số câu: {count}"
	AnswerKeyTitle    string
	Answer            string
	SuggestedAnswer   string
	Explanation       string
	ExtraExplanation  string
	BlankAnswerLine   string
	AnswerPlaceholder string
	Submit            string
	CorrectAnswer     string
	ScoreText         string // "Kết quả: {score} / {total} câu hỏi có thể chấm điểm."
}

// DefaultLabels returns the Vietnamese labels the product ships with.
func DefaultLabels() Labels {
	return Labels{
		Lang:              "vi",
		QuestionHeading:   "Câu {n}:",
		DocumentMeta:      "Thời gian làm bài: {duration} | Số lượng câu hỏi: {count}",
		PageMeta:          "Thời gian: {duration} | Số câu: {count}",
		AnswerKeyTitle:    "ĐÁP ÁN VÀ GIẢI THÍCH CHI TIẾT",
		Answer:            "Đáp án:",
		SuggestedAnswer:   "Gợi ý đáp án:",
		Explanation:       "Giải thích:",
		ExtraExplanation:  "Giải thích thêm:",
		BlankAnswerLine:   "Trả lời: ............................................................",
		AnswerPlaceholder: "Nhập câu trả lời...",
		Submit:            "Nộp bài",
		CorrectAnswer:     "Đáp án đúng:",
		ScoreText:         "Kết quả: {score} / {total} câu hỏi có thể chấm điểm.",
	}
}

// Question renders the heading for the n-th question (1-based).
func (l Labels) Question(n int) string {
	return strings.ReplaceAll(l.QuestionHeading, "{n}", strconv.Itoa(n))
}

// DocumentMetaLine renders the metadata line of the page document.
func (l Labels) DocumentMetaLine(duration string, count int) string {
	return fillMeta(l.DocumentMeta, duration, count)
}

// PageMetaLine renders the metadata line of the interactive page.
func (l Labels) PageMetaLine(duration string, count int) string {
	return fillMeta(l.PageMeta, duration, count)
}

// FormatScore fills a score pattern; the page script applies the same substitution.
func FormatScore(pattern string, correct, total int) string {
	return strings.NewReplacer(
		"{score}", strconv.Itoa(correct),
		"{total}", strconv.Itoa(total),
	).Replace(pattern)
}

func fillMeta(pattern, duration string, count int) string {
	return strings.NewReplacer(
		"{duration}", duration,
		"{count}", strconv.Itoa(count),
	).Replace(pattern)
}
