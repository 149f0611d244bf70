package usecase

import "fmt"

func summaryPrompt(role string) string {
	return fmt.Sprintf(`You are an expert interviewer assistant.
You will receive a full interview transcript as JSON array of messages.
Produce a strict JSON object with fields:
{
  "summary": string,                     // concise narrative summary (120-200 words)
  "key_strengths": string[],             // 3-7 items
  "concerns": string[],                  // 2-6 items, constructive
  "skills_mentioned": string[],          // deduplicated
  "notable_quotes": string[],            // 2-5 short quotes
  "overall_recommendation": "Strong Hire" | "Hire" | "Leaning Hire" | "Neutral" | "Leaning No" | "No Hire"
}
Guidelines: be specific and grounded in the transcript. Refer to the candidate as %s. Output valid JSON only.`, role)
}

const resumeSystemPrompt = "You are an expert in helping the employer to analyze the resume of the candidate. Analyze resumes thoroughly and provide constructive feedback."

func resumePrompt(text string) string {
	return `
Analyze the following resume text and return ONLY a strict JSON object with exactly these fields and no others:

{
  "summary": "Brief professional summary of the candidate",
  "skills": ["top", "skills", "from", "the", "resume"],
  "strengths": ["clear, specific strengths grounded in the resume"],
  "weaknesses": ["constructive weaknesses or gaps grounded in the resume"]
}

Rules:
- Output valid JSON only (no markdown fences or extra prose).
- Each array should contain 3-8 concise items.
- If information is insufficient, return an empty array for that field.

Resume Text:
` + text
}

func assistantPrompt(guidelines string) string {
	return `You are the Onboarding Assistant. Answer questions clearly and concisely.
If provided, use the following organization-specific onboarding guidelines as primary context. When relevant, quote or paraphrase them faithfully. If guidelines do not cover the question, answer from general best practices and note that the policy may vary.

Guidelines (may be empty):
` + guidelines
}
