package utils

import (
	"math/rand/v2"
	"strconv"
)

var nameAdjectives = []string{
	"Funky", "Groovy", "Electric", "Cosmic", "Disco", "Neon",
	"Retro", "Stellar", "Jazzy", "Vibrant", "Rhythmic", "Melodic",
	"Sonic", "Dynamic",
}

var nameNouns = []string{
	"Beats", "Rhythm", "Vibes", "Groove", "Tempo", "Harmony",
	"Sound", "Wave", "Flow", "Pulse", "Chords", "Bass", "Echo", "Dancer",
}

// RandomName generates a display name like "FunkyBeats42".
// Names are not unique; only ids are.
func RandomName() string {
	adj := nameAdjectives[rand.IntN(len(nameAdjectives))]
	noun := nameNouns[rand.IntN(len(nameNouns))]
	return adj + noun + strconv.Itoa(rand.IntN(99)+1)
}
