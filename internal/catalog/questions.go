package catalog

// Development question set. A real assessment would load a validated
// instrument from storage; these items exist so the pipeline can be driven
// end to end.

func likert() []Choice {
	return []Choice{
		{Value: "A", Label: "전혀 그렇지 않다"},
		{Value: "B", Label: "그렇지 않다"},
		{Value: "C", Label: "보통이다"},
		{Value: "D", Label: "그렇다"},
		{Value: "E", Label: "매우 그렇다"},
	}
}

var questions = []Question{
	{ID: 1, Text: "나는 요즘 스트레스를 많이 받는다", Category: "스트레스", Choices: likert()},
	{ID: 2, Text: "다른 사람들과 대화할 때 편안함을 느낀다", Category: "대인관계", Choices: likert()},
	{ID: 3, Text: "밤에 잠을 잘 자지 못한다", Category: "수면", Choices: likert()},
	{ID: 4, Text: "새로운 것에 도전하는 것을 좋아한다", Category: "성격", Choices: likert()},
	{ID: 5, Text: "내 감정을 다른 사람에게 잘 표현한다", Category: "감정표현", Choices: likert()},
	{ID: 6, Text: "일상생활에서 불안감을 자주 느낀다", Category: "스트레스", Choices: likert()},
	{ID: 7, Text: "친구들과 함께 있을 때 즐겁다", Category: "대인관계", Choices: likert()},
	{ID: 8, Text: "아침에 일어나는 것이 힘들다", Category: "수면", Choices: likert()},
	{ID: 9, Text: "계획을 세우고 체계적으로 일을 처리한다", Category: "성격", Choices: likert()},
	{ID: 10, Text: "슬플 때 눈물을 참지 않고 운다", Category: "감정표현", Choices: likert()},
}
