package challenge

import (
	"antislack/internal/models"
	"math/rand/v2"
	"regexp"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	simpleRx   = regexp.MustCompile(`^(\d+) ([+\-×]) (\d+)$`)
	hardRx     = regexp.MustCompile(`^\((\d+) ([+×]) (\d+)\) ([+×]) (\d+)$|^(\d+) × (\d+) - (\d+)$`)
	iterations = 2000
)

func atoi(t *testing.T, s string) int {
	n, err := strconv.Atoi(s)
	require.NoError(t, err)
	return n
}

func TestGenerate_Easy(t *testing.T) {
	g := NewGenerator(rand.NewPCG(1, 2))
	for i := 0; i < iterations; i++ {
		p := g.Generate(models.DifficultyEasy)
		m := simpleRx.FindStringSubmatch(p.Question)
		require.NotNil(t, m, p.Question)

		a, op, b := atoi(t, m[1]), m[2], atoi(t, m[3])
		switch op {
		case "+":
			assert.True(t, a >= 10 && a <= 50 && b >= 10 && b <= 50, p.Question)
			assert.Equal(t, a+b, p.Answer)
		case "-":
			assert.True(t, a >= 30 && a <= 99 && b >= 10 && b <= a-10, p.Question)
			assert.Equal(t, a-b, p.Answer)
		default:
			t.Fatalf("unexpected operator in easy problem: %s", p.Question)
		}
		assert.Positive(t, p.Answer)
	}
}

func TestGenerate_Medium(t *testing.T) {
	g := NewGenerator(rand.NewPCG(3, 4))
	seen := map[string]bool{}
	for i := 0; i < iterations; i++ {
		p := g.Generate(models.DifficultyMedium)
		m := simpleRx.FindStringSubmatch(p.Question)
		require.NotNil(t, m, p.Question)

		a, op, b := atoi(t, m[1]), m[2], atoi(t, m[3])
		seen[op] = true
		switch op {
		case "+":
			assert.Equal(t, a+b, p.Answer)
		case "-":
			assert.True(t, b < a, p.Question)
			assert.Equal(t, a-b, p.Answer)
		case "×":
			assert.True(t, a >= 2 && a <= 12 && b >= 2 && b <= 12, p.Question)
			assert.Equal(t, a*b, p.Answer)
		}
	}
	assert.Len(t, seen, 3)
}

func TestGenerate_Hard(t *testing.T) {
	g := NewGenerator(rand.NewPCG(5, 6))
	for i := 0; i < iterations; i++ {
		p := g.Generate(models.DifficultyHard)
		m := hardRx.FindStringSubmatch(p.Question)
		require.NotNil(t, m, p.Question)

		if m[1] != "" {
			a, b, c := atoi(t, m[1]), atoi(t, m[3]), atoi(t, m[5])
			if m[2] == "×" {
				assert.Equal(t, a*b+c, p.Answer)
			} else {
				assert.Equal(t, (a+b)*c, p.Answer)
			}
			continue
		}
		a, b, c := atoi(t, m[6]), atoi(t, m[7]), atoi(t, m[8])
		assert.True(t, c >= 10 && c <= 50 && c < a*b, p.Question)
		assert.Equal(t, a*b-c, p.Answer)
		assert.Positive(t, p.Answer)
	}
}

func TestGenerate_UnknownFallsBackToMedium(t *testing.T) {
	g := NewGenerator(nil)
	p := g.Generate(models.MathDifficulty("bogus"))
	assert.Regexp(t, simpleRx, p.Question)
}

func TestProblem_Check(t *testing.T) {
	p := Problem{Question: "2 × 3", Answer: 6}
	assert.True(t, p.Check(6))
	assert.False(t, p.Check(5))
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "15 + 23 = ?", Preview(models.DifficultyEasy))
	assert.Equal(t, "47 × 8 = ?", Preview(models.DifficultyMedium))
	assert.Equal(t, "(12 × 5) + 28 = ?", Preview(models.DifficultyHard))
}
