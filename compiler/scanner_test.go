package compiler

import "testing"

func scanAll(source string) []Token {
	s := NewScanner(source)
	var tokens []Token
	for {
		tok := s.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			return tokens
		}
	}
}

func scanTypes(source string) []TokenType {
	tokens := scanAll(source)
	types := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		types[i] = tok.Type
	}
	return types
}

func expectTypes(t *testing.T, source string, want ...TokenType) {
	t.Helper()
	got := scanTypes(source)
	want = append(want, TokenEOF)
	if len(got) != len(want) {
		t.Fatalf("scan(%q) = %v tokens, want %v", source, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("scan(%q)[%d] = %d, want %d", source, i, got[i], want[i])
		}
	}
}

func TestScanOperators(t *testing.T) {
	tests := []struct {
		source string
		want   TokenType
	}{
		{"+", TokenPlus},
		{"+=", TokenPlusEqual},
		{"++", TokenPlusPlus},
		{"-", TokenMinus},
		{"-=", TokenMinusEqual},
		{"--", TokenMinusMinus},
		{"->", TokenArrow},
		{"*", TokenStar},
		{"*=", TokenStarEqual},
		{"**", TokenStarStar},
		{"**=", TokenStarStarEqual},
		{"/", TokenSlash},
		{"/=", TokenSlashEqual},
		{"%", TokenPercent},
		{"%=", TokenPercentEqual},
		{"%%", TokenPercentPercent},
		{"%%=", TokenPercentPercentEqual},
		{"=", TokenEqual},
		{"==", TokenEqualEqual},
		{"!", TokenBang},
		{"!=", TokenBangEqual},
		{"<", TokenLess},
		{"<=", TokenLessEqual},
		{"<<", TokenLessLess},
		{"<<=", TokenLessLessEqual},
		{">", TokenGreater},
		{">=", TokenGreaterEqual},
		{">>", TokenGreaterGreater},
		{">>=", TokenGreaterGreaterEqual},
		{"&", TokenAmp},
		{"&=", TokenAmpEqual},
		{"&&", TokenKeywordAnd},
		{"|", TokenPipe},
		{"|=", TokenPipeEqual},
		{"||", TokenKeywordOr},
		{"^", TokenCaret},
		{"^=", TokenCaretEqual},
		{"~", TokenTilde},
		{"?", TokenQuestion},
		{":", TokenColon},
	}
	for _, tt := range tests {
		expectTypes(t, tt.source, tt.want)
	}
}

func TestScanKeywords(t *testing.T) {
	tests := []struct {
		source string
		want   TokenType
	}{
		{"and", TokenKeywordAnd},
		{"class", TokenKeywordClass},
		{"else", TokenKeywordElse},
		{"false", TokenKeywordFalse},
		{"for", TokenKeywordFor},
		{"func", TokenKeywordFunc},
		{"if", TokenKeywordIf},
		{"none", TokenKeywordNone},
		{"or", TokenKeywordOr},
		{"print", TokenKeywordPrint},
		{"return", TokenKeywordReturn},
		{"super", TokenKeywordSuper},
		{"this", TokenKeywordThis},
		{"true", TokenKeywordTrue},
		{"var", TokenKeywordVar},
		{"while", TokenKeywordWhile},
		// Near misses stay identifiers.
		{"classy", TokenIdentifier},
		{"fun", TokenIdentifier},
		{"foree", TokenIdentifier},
		{"_if", TokenIdentifier},
	}
	for _, tt := range tests {
		expectTypes(t, tt.source, tt.want)
	}
}

func TestScanNumbers(t *testing.T) {
	expectTypes(t, "123", TokenInt)
	expectTypes(t, "1.5", TokenFloat)
	expectTypes(t, ".5", TokenFloat)
	// A trailing dot is a separate token, not part of the number.
	expectTypes(t, "1.", TokenInt, TokenDot)

	tokens := scanAll(".75")
	if tokens[0].Lexeme != ".75" {
		t.Errorf("leading-dot float lexeme = %q", tokens[0].Lexeme)
	}
}

func TestScanStrings(t *testing.T) {
	for _, source := range []string{`"hello"`, `'hello'`} {
		tokens := scanAll(source)
		if tokens[0].Type != TokenString {
			t.Fatalf("scan(%q) type = %d", source, tokens[0].Type)
		}
		if tokens[0].Lexeme != source {
			t.Errorf("scan(%q) lexeme = %q", source, tokens[0].Lexeme)
		}
	}

	tokens := scanAll("'''a\nb'''")
	if tokens[0].Type != TokenString {
		t.Fatalf("triple-quoted scan type = %d (%q)", tokens[0].Type, tokens[0].Lexeme)
	}
	if tokens[1].Type != TokenEOF {
		t.Error("triple-quoted string over-consumed trailing input")
	}

	if tokens := scanAll(`"unterminated`); tokens[0].Type != TokenError {
		t.Error("unterminated string should produce an error token")
	}
	if tokens := scanAll("\"line\nbreak\""); tokens[0].Type != TokenError {
		t.Error("newline inside a single-line string should be an error")
	}
	if tokens := scanAll("'''still open"); tokens[0].Type != TokenError {
		t.Error("unterminated triple-quoted string should be an error")
	}
}

func TestScanComments(t *testing.T) {
	expectTypes(t, "1 // comment\n2", TokenInt, TokenInt)
	expectTypes(t, "1 /* comment */ 2", TokenInt, TokenInt)
	expectTypes(t, "1 /* outer /* inner */ still outer */ 2", TokenInt, TokenInt)
	expectTypes(t, "1 /* runs to end", TokenInt)
}

func TestScanShebang(t *testing.T) {
	expectTypes(t, "#!/usr/bin/env tarnish\nprint", TokenKeywordPrint)
}

func TestScanLineTracking(t *testing.T) {
	tokens := scanAll("1\n2\n\n3")
	lines := []int{1, 2, 4}
	for i, want := range lines {
		if tokens[i].Line != want {
			t.Errorf("token %d line = %d, want %d", i, tokens[i].Line, want)
		}
	}
}

func TestScanUnexpectedCharacter(t *testing.T) {
	tokens := scanAll("@")
	if tokens[0].Type != TokenError || tokens[0].Lexeme != "Unexpected character." {
		t.Errorf("scan(@) = %v", tokens[0])
	}
}
