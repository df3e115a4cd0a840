package generate

import (
	"math/rand"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mirrorfield/dust-machines/backend/internal/model/machine"
)

// The offline deck. When no model is configured the machines still answer,
// serving the installation's original canned content instead of going dark.

type deckMission struct {
	title       string
	description string
	category    machine.Category
}

var missionDeck = []deckMission{
	{"Compliment the Shoes", "Find the next person you see with dusty boots and give them a sincere compliment about their footwear specifically.", machine.CategoryConnection},
	{"Water Fairy", "Offer a drink of water (or electrolytes) to a stranger who looks like they need it. Ask for consent first, always.", machine.CategoryConnection},
	{"The Question", `Ask a stranger: "What is the weirdest gift you have received on the Playa so far?"`, machine.CategoryConnection},
	{"High Five Line", "Start a high-five line with at least 3 strangers.", machine.CategoryConnection},
	{"Dust Masterpiece", "Draw a temporary masterpiece in the dust near your feet. Give it a title and walk away.", machine.CategoryCreativity},
	{"Interpretive Dance", "Dance like a robot at the nearest sound camp or art car for exactly 2 minutes.", machine.CategoryCreativity},
	{"Hat Swap", "Ask a friend to swap hats with you for the next hour. If solo, wear your hat backwards.", machine.CategoryCreativity},
	{"Shadow Puppets", "Find a light source and make shadow puppets for an imaginary audience.", machine.CategoryCreativity},
	{"Art Car Hitchhiker", "Find the nearest art car. Ask the driver where they are headed and if you can hop on (if safe/allowed).", machine.CategoryAdventure},
	{"Trash Fence Trek", "Walk towards the trash fence until you find something interesting. Do not touch the fence.", machine.CategoryAdventure},
	{"Sunrise Scout", `Find a spot with a perfect view of the horizon. Tell someone "This is the spot" and walk away.`, machine.CategoryAdventure},
	{"Follow the Music", "Close your eyes, spin around, and walk towards the first music you hear.", machine.CategoryAdventure},
	{"Camp Name Story", "Stop at a theme camp you do not know. Ask a camper to tell you the wildly exaggerated story of their camp's name.", machine.CategoryLearning},
	{"Skill Swap", "Find someone doing something cool. Ask them to teach you one basic move or concept in under 5 minutes.", machine.CategoryLearning},
	{"The Man Perspective", "Observe the Man from a lying down position. Note how the perspective changes the feeling of the structure.", machine.CategoryLearning},
	{"Dust Analysis", "Pick up a handful of dust. Describe its texture to the nearest inanimate object.", machine.CategoryLearning},
	{"MOOP Story", "Find a piece of Matter Out Of Place (MOOP). Pick it up and invent a dramatic backstory for how it got there before throwing it away.", machine.CategorySelfDiscovery},
	{"Silence Check", "Stop exactly where you are. Listen to the sounds of the Playa for 60 seconds. Count how many distinct sounds you hear.", machine.CategorySelfDiscovery},
	{"Mental Thank You", "Think of the person who helped you get here. Send them a mental high-five right now.", machine.CategorySelfDiscovery},
	{"Dust Angel", "Lie down in the dust and make a dust angel. Embrace the dusty coating.", machine.CategorySelfDiscovery},
}

var oracleLines = []string{
	"Why do you seek what you seek?",
	"The mirror reveals only what you bring to it. Look closer.",
	"Is your journey truly your own, or are you following the dust of others?",
	"What would you do if no one was watching?",
	"Silence is also an answer. Listen to it.",
	"You are the art you have been looking for.",
}

type transmutationEntry struct {
	keywords []string
	insight  string
	wisdom   string
}

var transmutationTable = []transmutationEntry{
	{
		keywords: []string{"fear", "afraid", "scared", "anxiety"},
		insight:  "Fear is merely the border of your known reality.",
		wisdom:   "Let this fear become Curiosity. Explore the unknown without the tether of expectation.",
	},
	{
		keywords: []string{"regret", "mistake", "past", "sorry"},
		insight:  "The past is a lesson, not a life sentence.",
		wisdom:   "Let this regret become Experience. You have already paid the price; now keep the lesson.",
	},
	{
		keywords: []string{"anger", "mad", "hate", "furious"},
		insight:  "Your fire can destroy, or it can forge.",
		wisdom:   "Let this anger become Passion. Direct this heat towards creating something beautiful.",
	},
	{
		keywords: []string{"sad", "grief", "loss", "cry"},
		insight:  "Sorrow carves the space where joy will one day reside.",
		wisdom:   "Let this sadness become Depth. Your capacity to feel is your greatest strength.",
	},
	{
		keywords: []string{"tired", "exhausted", "burnout", "drained"},
		insight:  "Even the sun must set to rise again.",
		wisdom:   "Let this exhaustion become Rest. Surrender to the pause, for it is part of the music.",
	},
}

var defaultTransmutation = transmutationEntry{
	insight: "To release is to make space for the new.",
	wisdom:  "Let this burden become Ash, fertilizing the soil for your next bloom.",
}

// fallbackRand guards the shared source; handlers invoke the deck concurrently.
var fallbackMu sync.Mutex

func fallbackPick(n int, rng *rand.Rand) int {
	fallbackMu.Lock()
	defer fallbackMu.Unlock()
	return rng.Intn(n)
}

func fallbackMission(rng *rand.Rand) machine.Mission {
	entry := missionDeck[fallbackPick(len(missionDeck), rng)]
	return machine.Mission{
		ID:          uuid.NewString(),
		Title:       entry.title,
		Description: entry.description,
		Category:    entry.category,
		Color:       entry.category.Color(),
	}
}

func fallbackReflection(rng *rand.Rand) string {
	return oracleLines[fallbackPick(len(oracleLines), rng)]
}

// fallbackTransmutation matches the burden against the keyword table; the
// first entry with any keyword present wins.
func fallbackTransmutation(burden string) machine.Transmutation {
	lower := strings.ToLower(burden)
	entry := defaultTransmutation
	for _, candidate := range transmutationTable {
		matched := false
		for _, kw := range candidate.keywords {
			if strings.Contains(lower, kw) {
				matched = true
				break
			}
		}
		if matched {
			entry = candidate
			break
		}
	}
	return machine.Transmutation{
		Original: burden,
		Insight:  entry.insight,
		Wisdom:   entry.wisdom,
	}
}
