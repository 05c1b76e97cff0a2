package expression

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	exprA = "last(/h/a)=1"
	exprB = "last(/h/b)=2"
	exprC = "last(/h/c)=3"
)

func TestParse_Tokens(t *testing.T) {
	r, err := Parse("last(/host/key,#5) > {$LIMIT} and not nodata(/h/k, 5m)=1")
	require.NoError(t, err)

	types := make([]TokenType, 0, len(r.Tokens))
	for _, tok := range r.Tokens {
		types = append(types, tok.Type)
	}
	assert.Equal(t, []TokenType{
		TokenFunction, TokenOperator, TokenMacro, TokenLogicalOperator, TokenNot,
		TokenFunction, TokenOperator, TokenNumber,
	}, types)

	first := r.Tokens[0]
	assert.Equal(t, "last", first.Name)
	assert.Equal(t, []string{"/host/key", "#5"}, first.Params)
	assert.Equal(t, 0, first.Pos)
	assert.Equal(t, len("last(/host/key,#5)"), first.Length)

	assert.Equal(t, []string{"/h/k", "5m"}, r.Tokens[5].Params)
}

func TestParse_TrimsAndKeepsPositions(t *testing.T) {
	r, err := Parse("\n  " + exprA + " or {#MACRO}<>\"x\\\"y\"  \t")
	require.NoError(t, err)

	assert.Equal(t, exprA+" or {#MACRO}<>\"x\\\"y\"", r.Expression)
	for _, tok := range r.Tokens {
		assert.Equal(t, tok.Match, r.Expression[tok.Pos:tok.Pos+tok.Length])
	}
	assert.Equal(t, TokenLLDMacro, r.Tokens[4].Type)
	assert.Equal(t, TokenString, r.Tokens[6].Type)
}

func TestParse_Numbers(t *testing.T) {
	r, err := Parse("avg(/h/k,1h) > 1.5e3 or avg(/h/k,1h) < 10K or -.5 = -1")
	require.NoError(t, err)

	var numbers []string
	for _, tok := range r.Tokens {
		if tok.Type == TokenNumber {
			numbers = append(numbers, tok.Match)
		}
	}
	assert.Equal(t, []string{"1.5e3", "10K", ".5", "1"}, numbers)
}

func TestParse_Keywords(t *testing.T) {
	r, err := Parse("(" + exprA + ")and(" + exprB + ")")
	require.NoError(t, err)
	assert.Equal(t, TokenLogicalOperator, r.Tokens[5].Type)
	assert.Equal(t, "and", r.Tokens[5].Match)
}

func TestParse_Errors(t *testing.T) {
	cases := []string{
		"",
		"   ",
		exprA + " and",
		"(" + exprA,
		exprA + ")",
		exprA + " " + exprB,
		"foo",
		"last(/h/a",
		"last(/h/a)=\"abc",
		"{$UNTERMINATED",
		"{}",
		"12abc",
		exprA + " & " + exprB,
		"and " + exprA,
	}
	for _, text := range cases {
		_, err := Parse(text)
		require.Error(t, err, text)

		var perr *ParseError
		assert.True(t, errors.As(err, &perr), text)
	}
}

func TestParseError_Message(t *testing.T) {
	_, err := Parse(exprA + " " + exprB)
	require.Error(t, err)
	assert.Equal(t, `incorrect trigger expression starting from "last(/h/b)=2": operator expected`, err.Error())

	_, err = Parse(exprA + " or")
	require.Error(t, err)
	assert.Equal(t, "incorrect trigger expression: operand expected at end of input", err.Error())
}
