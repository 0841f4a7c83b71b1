// Package challenge generates the arithmetic problems that gate a bypass.
package challenge

import (
	"antislack/internal/models"
	"fmt"
	"math/rand/v2"
)

type Problem struct {
	Question string `json:"question"`
	Answer   int    `json:"-"`
}

func (p Problem) Check(answer int) bool {
	return p.Answer == answer
}

// Generator is not safe for concurrent use.
type Generator struct {
	rnd *rand.Rand
}

// NewGenerator uses src for all draws; nil means a randomly seeded PCG source.
func NewGenerator(src rand.Source) *Generator {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Generator{rnd: rand.New(src)}
}

// between returns an int in [lo, hi].
func (g *Generator) between(lo, hi int) int {
	return lo + g.rnd.IntN(hi-lo+1)
}

// Intn returns an int in [0, n).
func (g *Generator) Intn(n int) int {
	return g.rnd.IntN(n)
}

func (g *Generator) Generate(difficulty models.MathDifficulty) Problem {
	switch difficulty {
	case models.DifficultyEasy:
		return g.easy()
	case models.DifficultyHard:
		return g.hard()
	default:
		return g.medium()
	}
}

func (g *Generator) easy() Problem {
	if g.between(0, 1) == 0 {
		a, b := g.between(10, 50), g.between(10, 50)
		return Problem{Question: fmt.Sprintf("%d + %d", a, b), Answer: a + b}
	}
	a := g.between(30, 99)
	b := g.between(10, a-10)
	return Problem{Question: fmt.Sprintf("%d - %d", a, b), Answer: a - b}
}

func (g *Generator) medium() Problem {
	switch g.between(0, 2) {
	case 0:
		a, b := g.between(10, 99), g.between(10, 99)
		return Problem{Question: fmt.Sprintf("%d + %d", a, b), Answer: a + b}
	case 1:
		a := g.between(50, 99)
		b := g.between(10, a-1)
		return Problem{Question: fmt.Sprintf("%d - %d", a, b), Answer: a - b}
	default:
		a, b := g.between(2, 12), g.between(2, 12)
		return Problem{Question: fmt.Sprintf("%d × %d", a, b), Answer: a * b}
	}
}

func (g *Generator) hard() Problem {
	switch g.between(0, 2) {
	case 0:
		a, b, c := g.between(2, 12), g.between(2, 12), g.between(10, 50)
		return Problem{Question: fmt.Sprintf("(%d × %d) + %d", a, b, c), Answer: a*b + c}
	case 1:
		a, b, c := g.between(5, 20), g.between(5, 20), g.between(2, 6)
		return Problem{Question: fmt.Sprintf("(%d + %d) × %d", a, b, c), Answer: (a + b) * c}
	default:
		a, b := g.between(5, 12), g.between(5, 12)
		product := a * b
		c := g.between(10, min(product-1, 50))
		return Problem{Question: fmt.Sprintf("%d × %d - %d", a, b, c), Answer: product - c}
	}
}

// Preview returns a fixed sample problem shown next to the difficulty setting.
func Preview(difficulty models.MathDifficulty) string {
	switch difficulty {
	case models.DifficultyEasy:
		return "15 + 23 = ?"
	case models.DifficultyHard:
		return "(12 × 5) + 28 = ?"
	default:
		return "47 × 8 = ?"
	}
}
