package termview

import (
	"strings"
	"testing"

	"github.com/pavelanni/examgen/internal/export"
	"github.com/pavelanni/examgen/internal/model"
)

func testExam() model.Exam {
	return model.Exam{
		Title:    "Đề kiểm tra",
		Metadata: model.Metadata{Duration: "6 phút", NumQuestions: 4, Instructions: "Làm tất cả các câu."},
		Questions: []model.Question{
			{ID: 1, Text: "2 + 2 = ?", Explanation: "Phép cộng.", Body: model.MultipleChoice{
				Options: []string{"A. 3", "B. 4"}, Answer: "B",
			}},
			{ID: 2, Text: "Xét:", Body: model.TrueFalse{SubQuestions: []model.SubQuestion{
				{ID: "a", Text: "1 < 2", Answer: model.True, Explanation: "Hiển nhiên."},
			}}},
			{ID: 3, Text: "Thủ đô của Pháp là ____.", Body: model.FillInTheBlank{Answer: "Paris"}},
			{ID: 4, Text: "Trình bày ý kiến.", Body: model.Essay{SuggestedAnswer: "Tự do."}},
		},
	}
}

func TestRenderPlain(t *testing.T) {
	out := Render(testExam(), export.DefaultLabels(), Options{Answers: true, NoColor: true})

	for _, want := range []string{
		"Đề kiểm tra\n",
		"Thời gian làm bài: 6 phút | Số lượng câu hỏi: 4\n",
		"Câu 1: 2 + 2 = ?\n",
		"    A. 3\n",
		"    Đáp án: B\n",
		"    a) 1 < 2 [Đúng]\n",
		"        Giải thích: Hiển nhiên.\n",
		"    Đáp án: Paris\n",
		"Câu 4: Trình bày ý kiến.\n",
		"    Giải thích: Phép cộng.\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("NoColor output contains escape sequences")
	}
}

func TestRenderWithoutAnswers(t *testing.T) {
	out := Render(testExam(), export.DefaultLabels(), Options{NoColor: true})

	for _, hidden := range []string{"Đáp án: B", "[Đúng]", "Paris", "Tự do.", "Phép cộng."} {
		if strings.Contains(out, hidden) {
			t.Errorf("output without answers contains %q", hidden)
		}
	}
	if !strings.Contains(out, "    B. 4\n") {
		t.Error("options are missing")
	}
}
