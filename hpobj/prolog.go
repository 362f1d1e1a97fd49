package hpobj

import "fmt"

// Prolog is the 20-bit address at the start of every object. It names the
// routine that handles the object and therefore its type.
type Prolog uint32

// Known prologs
const (
	DOBINT    Prolog = 0x02911 // system binary integer
	DOREAL    Prolog = 0x02933
	DOEREL    Prolog = 0x02955 // extended real
	DOCMP     Prolog = 0x02977 // complex
	DOECMP    Prolog = 0x0299D // extended complex
	DOCHAR    Prolog = 0x029BF
	DOARRY    Prolog = 0x029E8
	DOLNKARRY Prolog = 0x02A0A
	DOCSTR    Prolog = 0x02A2C // string
	DOHSTR    Prolog = 0x02A4E // binary integer
	DOLIST    Prolog = 0x02A74
	DORRP     Prolog = 0x02A96 // directory
	DOSYMB    Prolog = 0x02AB8 // algebraic
	DOEXT     Prolog = 0x02ADA // unit
	DOTAG     Prolog = 0x02AFC
	DOGROB    Prolog = 0x02B1E
	DOLIB     Prolog = 0x02B40
	DOBAK     Prolog = 0x02B62
	DOEXT0    Prolog = 0x02B88 // library data
	DOCOL     Prolog = 0x02D9D // program
	DOCODE    Prolog = 0x02DCC
	DOIDNT    Prolog = 0x02E48 // global name
	DOLAM     Prolog = 0x02E6D // local name
	DOROMP    Prolog = 0x02E92 // XLIB name
)

// SEMI closes programs, lists, algebraics and units. Scanning nibbles into
// an accumulator from the low end sees its address reversed.
const (
	SEMI        Prolog = 0x0312B
	semiScanned        = 0xB2130
)

// prologSize is the nibble width of a prolog and of every Saturn address
const prologSize = 5

// Strategy says how the length of an object is found
type Strategy int

const (
	// Fixed objects always occupy the same number of nibbles
	Fixed Strategy = iota
	// SizeNext objects carry a 5-nibble length after the prolog
	SizeNext
	// ASCICNext objects carry a counted name, then a nested object
	ASCICNext
	// FindEndMarker objects run up to a closing SEMI
	FindEndMarker
	// DirNext is the directory layout
	DirNext
)

var strategies = map[Prolog]Strategy{
	DOBINT: Fixed,
	DOREAL: Fixed,
	DOEREL: Fixed,
	DOCMP:  Fixed,
	DOECMP: Fixed,
	DOCHAR: Fixed,
	DOROMP: Fixed,

	DOARRY:    SizeNext,
	DOLNKARRY: SizeNext,
	DOCSTR:    SizeNext,
	DOHSTR:    SizeNext,
	DOGROB:    SizeNext,
	DOLIB:     SizeNext,
	DOBAK:     SizeNext,
	DOEXT0:    SizeNext,
	DOCODE:    SizeNext,

	DOIDNT: ASCICNext,
	DOLAM:  ASCICNext,
	DOTAG:  ASCICNext,

	DOEXT:  FindEndMarker,
	DOCOL:  FindEndMarker,
	DOSYMB: FindEndMarker,
	DOLIST: FindEndMarker,

	DORRP: DirNext,
}

// fixedSizes holds total nibble counts, prolog included
var fixedSizes = map[Prolog]int{
	DOBINT: 10,
	DOREAL: 21,
	DOEREL: 26,
	DOCMP:  37,
	DOECMP: 47,
	DOCHAR: 7,
	DOROMP: 11,
}

func (p Prolog) String() string {
	return fmt.Sprintf("0x%05X", uint32(p))
}
