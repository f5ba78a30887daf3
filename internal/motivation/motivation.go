// Package motivation produces the daily tips, memes, and encouragement shown
// on the dashboard. All content is static; selection is random or derived
// from the user's study stats.
package motivation

import (
	"fmt"
	"math/rand"
)

var tips = []string{
	"Try the Pomodoro Technique: 25 minutes of focus, then a 5-minute break! 🍅",
	"Teaching someone else is the best way to learn. Explain concepts out loud! 🗣️",
	"Stay hydrated! Your brain works better when you drink enough water. 💧",
	"Take short walks between study sessions to boost memory retention. 🚶",
	"Use active recall: close your notes and try to remember what you just read. 🧠",
	"Get enough sleep! Your brain consolidates memories while you rest. 😴",
	"Break big topics into smaller chunks - it's easier to digest! 🍕",
	"Create mind maps to visualize connections between concepts. 🗺️",
	"Study in different locations to improve memory recall. 📍",
	"Reward yourself after completing study goals! 🎁",
}

// Meme is a text meme with a mood label the frontend can style by.
type Meme struct {
	Text string `json:"text"`
	Mood string `json:"mood"`
}

var memes = []Meme{
	{Text: "Me: I'll study for 5 minutes.\n*3 hours later*\nStill on the same page 😅", Mood: "relatable"},
	{Text: "Brain before exam: I know nothing.\nBrain at 3am: Here's a random memory from 2015 🧠", Mood: "funny"},
	{Text: "Study tip: Crying counts as studying if it's about the material 📖😭", Mood: "dark_humor"},
	{Text: "Me: Opens textbook.\nTextbook: You dare approach me? 📚⚔️", Mood: "anime"},
	{Text: "When you finally understand a concept:\n*chef's kiss* 👨‍🍳💋", Mood: "victory"},
	{Text: "My brain during class: 💤\nMy brain at 2am: What if aliens use Reddit? 👽", Mood: "random"},
}

const (
	encouragementStreak1      = "You started! That's the hardest part. Keep it up! 🌱"
	encouragementStreak3      = "3 days strong! You're building momentum! 🚀"
	encouragementStreak7      = "A WHOLE WEEK! You're officially a study machine! 🤖"
	encouragementStreak14     = "Two weeks of dedication! You're unstoppable! 💪"
	encouragementStreak30     = "30 DAYS! You've built an incredible habit! 🏆"
	encouragementPerfectScore = "PERFECT SCORE! You absolutely crushed it! 🎯"
	encouragementComeback     = "Welcome back! Ready to pick up where you left off? 🔄"
	encouragementWelcome      = "Welcome! Ready to start your learning journey? 🎉"
)

// Daily is what the dashboard shows each visit.
type Daily struct {
	Encouragement string `json:"encouragement"`
	Tip           string `json:"tip"`
	Meme          Meme   `json:"meme"`
}

// DailyMotivation picks an encouragement for the user's current streak plus
// a random tip and meme.
func DailyMotivation(streak, totalSessions int) Daily {
	var encouragement string
	switch {
	case streak >= 30:
		encouragement = encouragementStreak30
	case streak >= 14:
		encouragement = encouragementStreak14
	case streak >= 7:
		encouragement = encouragementStreak7
	case streak >= 3:
		encouragement = encouragementStreak3
	case streak >= 1:
		encouragement = encouragementStreak1
	case totalSessions > 0:
		encouragement = encouragementComeback
	default:
		encouragement = encouragementWelcome
	}

	return Daily{
		Encouragement: encouragement,
		Tip:           tips[rand.Intn(len(tips))],
		Meme:          memes[rand.Intn(len(memes))],
	}
}

// SessionFeedback summarizes a finished study session by quiz accuracy.
func SessionFeedback(questionsAnswered, correctAnswers int) string {
	if questionsAnswered == 0 {
		return "Good reading session! Try some quizzes next time to test yourself! 📚"
	}

	accuracy := float64(correctAnswers) / float64(questionsAnswered) * 100

	switch {
	case accuracy == 100:
		return encouragementPerfectScore
	case accuracy >= 80:
		return fmt.Sprintf("Excellent! %.0f%% accuracy! You really know this material! 🌟", accuracy)
	case accuracy >= 60:
		return fmt.Sprintf("Good job! %.0f%% accuracy. Keep practicing! 💪", accuracy)
	default:
		return fmt.Sprintf("%.0f%% - Don't worry! Every mistake is a learning opportunity! 📖", accuracy)
	}
}
