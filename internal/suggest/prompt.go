package suggest

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/wodcoach/internal/workout"
)

const exercisePool = `EXERCISE TYPES TO INCLUDE (choose 5-6 from these, and always include at least one from 'Core' for full body workouts):
- Barbell: Back Squats, Front Squats, Deadlifts, Bench Press, Overhead Press, Clean & Press, Snatches, Thrusters, Romanian Deadlifts
- Dumbbell: Squats, Lunges, Deadlifts, Bench Press, Shoulder Press, Rows, Thrusters, Clean & Press, Snatches, Complex movements
- Gymnastics: Pull-ups, Push-ups, Toes-to-bar, L-Sits (NO advanced gymnastics like muscle-ups)
- Bodyweight: Air Squats, Lunges, Box Jumps, Burpees, Mountain Climbers, Pistol Squats
- Monostructural: Running, Rowing, Air Bike, Jump Rope, Burpees, Double-unders
- Machine: Leg Press, Lat Pulldown, Cable Machine exercises, Smith Machine exercises
- Cardio Equipment: Treadmill, Rowing Machine, Exercise Bike
- Other: Kettlebells, Resistance Bands, Medicine Balls, Box/Platform exercises
- Core: Plank Variations, Russian Twists, V-Ups, Hanging Knee Raises, Hollow Holds, Sit-Ups, Abmat Sit-Ups, Bicycle Crunches, Leg Raises, Flutter Kicks, Superman Holds, Dead Bugs`

const coreRequirement = "IMPORTANT: The workout MUST include at least one core exercise " +
	"(e.g., planks, sit-ups, hollow holds, Russian twists, L-sits, leg raises, or similar)."

const requirements = `Requirements:
- 4-6 exercises per workout
- Include warmup and cooldown
- For full body workouts, always include at least one core movement
- Avoid advanced gymnastics (no muscle-ups, handstand walks, etc.)
- Avoid hardcoded or repeated workouts
- Use only the user's available equipment
- Make it fun and challenging!
- Respond with a single JSON object of this shape and nothing else:
{"name": "...", "difficulty": "...", "intensity": "...", "focusArea": "...", "estimatedDuration": 45,
 "warmup": {"duration": "5-8 minutes", "exercises": [{"name": "...", "duration": "...", "instructions": "..."}]},
 "strength": {"duration": "...", "focus": "...", "exercises": [{"name": "...", "sets": "5", "reps": "5", "rest": "...", "instructions": "...", "scaling": "..."}]},
 "wod": {"duration": "...", "workoutType": "AMRAP", "description": "...", "exercises": [{"name": "...", "reps": "...", "instructions": "...", "scaling": "..."}]},
 "cooldown": {"duration": "3-5 minutes", "exercises": [{"name": "...", "duration": "...", "instructions": "..."}]}}`

//nolint:gochecknoglobals // read-only word lists.
var (
	entropyEmojis = []string{
		"🔥", "💪", "🏋️", "🏃", "🤸", "🚴", "🏆", "🥇", "🎯", "⏱️", "🦾", "🦵", "🧘", "🤖", "🥊", "🧗",
	}
	motivationalPhrases = []string{
		"Push your limits!",
		"Stronger every day!",
		"No excuses!",
		"Crush your workout!",
		"You got this!",
		"Train insane or remain the same!",
		"Be your best self!",
		"One more rep!",
		"Earn your shower!",
		"Sweat now, shine later!",
	}
)

const randomizerRange = 100000

// Entropy makes every prompt unique so that the model does not repeat itself. It is never parsed back.
type Entropy struct {
	Randomizer int
	Timestamp  time.Time
	UUID       uuid.UUID
	Emoji      string
	Phrase     string
}

func NewEntropy(r Rand, now time.Time) Entropy {
	return Entropy{
		Randomizer: r.IntN(randomizerRange),
		Timestamp:  now,
		UUID:       uuid.New(),
		Emoji:      pick(r, entropyEmojis),
		Phrase:     pick(r, motivationalPhrases),
	}
}

func (e Entropy) String() string {
	return fmt.Sprintf("Randomizer: %d-%s | UUID: %s | %s | %s",
		e.Randomizer, e.Timestamp.UTC().Format(time.RFC3339Nano), e.UUID, e.Emoji, e.Phrase)
}

// BuildPrompt asks the model for one structured CrossFit workout. history is ordered newest first.
func BuildPrompt(prefs workout.Preferences, history []workout.Workout, entropy Entropy) string {
	prefs = prefs.Normalize()
	equipment := "bodyweight only"
	if len(prefs.AvailableEquipment) > 0 {
		equipment = strings.Join(prefs.AvailableEquipment, ", ")
	}

	var b strings.Builder
	b.WriteString("You are a CrossFit coach. Generate a unique, authentic CrossFit WOD (Workout of the Day) for a user.\n\n")
	b.WriteString(exercisePool)
	fmt.Fprintf(&b, "\n\nUser Preferences: Fitness Level: %s, Focus Area: %s, Duration: %d min, Intensity: %s.\n",
		prefs.FitnessLevel, prefs.FocusArea, prefs.Duration, prefs.Intensity)
	fmt.Fprintf(&b, "Available equipment: %s.\n", equipment)
	if prefs.FocusArea == workout.FocusFullBody {
		b.WriteString("\n" + coreRequirement + "\n")
	}
	b.WriteString("\n" + requirements + "\n\n")
	b.WriteString(AnalyzeHistory(history[:min(recentWorkouts, len(history))]))
	b.WriteString("\n\n" + entropy.String())
	return b.String()
}

// AnalyzeHistory summarizes recent workouts for the prompt.
func AnalyzeHistory(workouts []workout.Workout) string {
	if len(workouts) == 0 {
		return "No recent workout history available."
	}

	mostCommon := "none"
	counts := make(map[workout.FocusArea]int)
	best := 0
	exercises := 0
	dates := make([]string, 0, len(workouts))
	for _, w := range workouts {
		if w.FocusArea != "" {
			counts[w.FocusArea]++
			if counts[w.FocusArea] > best {
				best = counts[w.FocusArea]
				mostCommon = string(w.FocusArea)
			}
		}
		exercises += w.ExerciseCount()
		dates = append(dates, w.CreatedAt.Format(time.DateOnly))
	}
	average := int(math.Round(float64(exercises) / float64(len(workouts))))

	return fmt.Sprintf(`Recent workout patterns:
- Most common focus area: %s
- Average exercises per workout: %d
- Total recent workouts: %d
- Recent workout dates: %s`, mostCommon, average, len(workouts), strings.Join(dates, ", "))
}
