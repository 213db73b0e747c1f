package telegram

import (
	"fmt"

	"github.com/bekzodm/videoquota-bot/internal/domain"
)

// availableTimezones maps the shorthand accepted by /settimezone to IANA
// location names.
var availableTimezones = map[string]string{
	"uzbekistan":   "Asia/Tashkent",
	"south_korea":  "Asia/Seoul",
	"korea":        "Asia/Seoul",
	"usa_east":     "America/New_York",
	"usa_central":  "America/Chicago",
	"usa_mountain": "America/Denver",
	"usa_pacific":  "America/Los_Angeles",
	"usa_alaska":   "America/Anchorage",
	"usa_hawaii":   "Pacific/Honolulu",
}

const startPrivateText = `👋 *Welcome to Video Duration Monitor!*

Send me your videos and I'll track your progress.
Your stats are private - only you can see them here.

📹 *Submit videos*
• Send directly to the group → public
• Send to me privately → announced in the group
• Videos are deleted for privacy 🗑️

📊 *Your stats*
/myhours - total video hours
/mydeficit - time you owe
/mystreak - consecutive days
/settimezone - set your timezone
/subscribers - view all members

🏆 *Leaderboards*
/today /week /month /alltime

💡 Ready? Send me a video to start! 🎬`

const startGroupText = `👋 *Video Duration Monitor Bot*

I track 2-hour video submissions and manage accountability.

⚠️ *Rules*
• Minimum: 2 hours of video per day
• Short days roll into a deficit for tomorrow
• 60 hours deficit = auto-kick 🚫
• Warnings at 15h, 30h, 45h

📊 *Public commands*
/today /week /month /alltime

👑 *Admin commands*
/subscribers /alldeficits
/addtime <id> <min>  /removetime <id> <min>
/settimezone  /enablereminders

DM me /start for private stats.`

const privacyRedirectText = "🔒 Personal stats are private!\nPlease send me a direct message to check them."

var slackerJokes = []string{
	"Why did the procrastinator's video go to therapy? Because it had commitment issues! 😄 Submit your 2-hour video today!",
	"What's the difference between you and a working camera? The camera actually records! 📹 Time to film that video!",
	"I asked my friend how their video submission was going. They said 'I'll do it tomorrow.' That was 3 weeks ago! 😅",
	"Why don't procrastinators ever win at video submission? Because they're always behind! ⏰ Catch up today!",
	"Breaking news: local person discovers that videos don't make themselves. More at 11. 📰 Get recording!",
	"Your deficit called. It said it's feeling very comfortable and might stay forever. Better evict it! 💪",
	"What do you call someone with a 40-hour deficit? An overachiever... at procrastination! 😂 Time to change that!",
	"Roses are red, violets are blue, your video is due, what will you do? 🌹📹",
}

var motivationalMessages = []string{
	"🌟 'Success is the sum of small efforts repeated day in and day out.' Keep that streak alive!",
	"💪 You're not just making videos, you're building discipline. Every upload counts!",
	"🔥 Consistency beats perfection. Submit your video today and keep the momentum going!",
	"🎯 Your only limit is you. Two hours today means two hours of growth. You got this!",
	"🚀 The difference between who you are and who you want to be is what you do. Submit that video!",
	"🏆 Winners never quit, and quitters never win. Keep your streak alive!",
	"🌈 Every video you submit is a step closer to your goals. Don't break the chain!",
	"💫 Your future self will thank you for the video you submit today. Stay consistent!",
	"🔑 Discipline is the bridge between goals and accomplishment. Cross that bridge today!",
	"⚡ You don't have to be great to start, but you have to start to be great. Let's go!",
}

// warningText renders the private escalation notice for a crossed threshold.
func warningText(tag domain.WarningTag) string {
	switch tag {
	case domain.WarnThreeQuarter:
		return "🚨 URGENT WARNING! 🚨\n\n" +
			"You are at 75% of the kick threshold (45 hours deficit)!\n" +
			"You need to catch up SOON or you will be automatically kicked at 60 hours deficit!"
	case domain.WarnHalf:
		return "⚠️ WARNING! ⚠️\n\n" +
			"You are at 50% of the kick threshold (30 hours deficit)!\n" +
			"Please catch up on your video hours to avoid being kicked."
	default:
		return "⚡ Notice: you are at 25% of the kick threshold (15 hours deficit).\n" +
			"Keep an eye on your deficit to stay in the group!"
	}
}

func kickedText(name string) string {
	return fmt.Sprintf("🚫 @%s has been KICKED!\nReason: deficit reached 60 hours.", name)
}

func streakSuffix(days int64) string {
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}
