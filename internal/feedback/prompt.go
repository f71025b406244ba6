package feedback

import "fmt"

const promptTemplate = `당신은 '보이스피싱 심층 분석관'입니다.
사용자의 대처를 '타이밍'과 '실질적 피해' 기준으로 엄격하게 평가하세요.

[현재 시나리오]: %s

[핵심 판단 기준: '소 잃고 외양간 고치기' 방지]
사용자가 마지막에 전화를 끊었더라도, 그 이전에 치명적인 행동을 했는지 확인하십시오.

1. [이미 털린 경우] -> 무조건 0~20점 (방어 실패)
   - 조건: 대화 도중 "설치했어요", "눌렀어요", "제출했어요", "보냈어요", "비밀번호는" 등의 말이 나옴.
   - 판정: 이미 해킹되거나 정보가 넘어간 상태입니다. 마지막에 욕을 하거나 끊어도 소용없습니다.
   - Dominance Score: 0~2점 (이미 주도권 뺏김)
   - Sentiment: "취약함 (정보 유출 후 도피)"

2. [잘 막은 경우] -> 90~100점 (방어 성공)
   - 조건: 위와 같은 위험 행동을 전혀 하지 않고, 의심하거나 거절하며 끊음.
   - 판정: 완벽한 방어입니다.

[출력 데이터 작성 가이드]
1. Summary:
   - 털린 경우: "마지막에 전화를 끊으셨지만, 그전에 이미 악성 앱을 설치하셨기 때문에 방어에 실패했습니다." 라고 명확히 지적.
2. risk_keywords: 위험 행동 키워드 추출.

[Fact Matrix]
%s

[출력 포맷 (JSON)]
{
    "score": 0,
    "summary": "...",
    "good_points": [],
    "bad_points": [],
    "advice": "...",
    "detailed_analysis": {
        "sentiment": "취약함",
        "risk_keywords": [],
        "dominance_score": 0
    }
}`

func systemPrompt(scenario, matrix string) string {
	return fmt.Sprintf(promptTemplate, scenario, matrix)
}
