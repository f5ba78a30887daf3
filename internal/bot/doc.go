// Package bot implements the study buddy assistant on top of the Groq
// chat-completions API.
//
// A StudyBot is constructed per request from the study file content and the
// stored conversation memory; the memory window keeps the last exchanges so
// the bot can evaluate answers to quizzes it asked earlier. Responses to
// structured actions (quiz, flashcards) use line-oriented marker formats that
// are parsed here; when parsing fails the raw response is surfaced as a plain
// message instead of an error.
package bot
