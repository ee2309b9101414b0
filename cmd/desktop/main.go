package main

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"hackvm/pkg/asm"
	"hackvm/pkg/cpu"
	"hackvm/pkg/driver"
	"hackvm/pkg/translator"
	"hackvm/pkg/utils"
)

// stepsPerFrame approximates a few MHz at 60 frames per second.
const stepsPerFrame = 50000

type Game struct {
	vm        *cpu.CPU
	screenImg *ebiten.Image // reused 512×256 bitmap canvas
}

// hackKeys maps keys to the codes the Hack keyboard register reports for
// them. Letters, digits and function keys are filled in by init.
var hackKeys = map[ebiten.Key]int16{
	ebiten.KeyEnter:      128,
	ebiten.KeyBackspace:  129,
	ebiten.KeyArrowLeft:  130,
	ebiten.KeyArrowUp:    131,
	ebiten.KeyArrowRight: 132,
	ebiten.KeyArrowDown:  133,
	ebiten.KeyHome:       134,
	ebiten.KeyEnd:        135,
	ebiten.KeyPageUp:     136,
	ebiten.KeyPageDown:   137,
	ebiten.KeyInsert:     138,
	ebiten.KeyDelete:     139,
	ebiten.KeyEscape:     140,
	ebiten.KeySpace:      ' ',
	ebiten.KeyMinus:      '-',
	ebiten.KeyEqual:      '=',
	ebiten.KeyComma:      ',',
	ebiten.KeyPeriod:     '.',
	ebiten.KeySlash:      '/',
}

var (
	letterKeys = []ebiten.Key{
		ebiten.KeyA, ebiten.KeyB, ebiten.KeyC, ebiten.KeyD, ebiten.KeyE, ebiten.KeyF, ebiten.KeyG,
		ebiten.KeyH, ebiten.KeyI, ebiten.KeyJ, ebiten.KeyK, ebiten.KeyL, ebiten.KeyM, ebiten.KeyN,
		ebiten.KeyO, ebiten.KeyP, ebiten.KeyQ, ebiten.KeyR, ebiten.KeyS, ebiten.KeyT, ebiten.KeyU,
		ebiten.KeyV, ebiten.KeyW, ebiten.KeyX, ebiten.KeyY, ebiten.KeyZ,
	}
	digitKeys = []ebiten.Key{
		ebiten.KeyDigit0, ebiten.KeyDigit1, ebiten.KeyDigit2, ebiten.KeyDigit3, ebiten.KeyDigit4,
		ebiten.KeyDigit5, ebiten.KeyDigit6, ebiten.KeyDigit7, ebiten.KeyDigit8, ebiten.KeyDigit9,
	}
	functionKeys = []ebiten.Key{
		ebiten.KeyF1, ebiten.KeyF2, ebiten.KeyF3, ebiten.KeyF4, ebiten.KeyF5, ebiten.KeyF6,
		ebiten.KeyF7, ebiten.KeyF8, ebiten.KeyF9, ebiten.KeyF10, ebiten.KeyF11, ebiten.KeyF12,
	}
)

func init() {
	for i, k := range letterKeys {
		hackKeys[k] = int16('A' + i)
	}
	for i, k := range digitKeys {
		hackKeys[k] = int16('0' + i)
	}
	for i, k := range functionKeys {
		hackKeys[k] = int16(141 + i)
	}
}

// keyCode returns the Hack keyboard code for k, or 0 if it has none.
func keyCode(k ebiten.Key) int16 {
	return hackKeys[k]
}

// pressedCode returns the code of the first mapped key in keys.
func pressedCode(keys []ebiten.Key) int16 {
	for _, k := range keys {
		if code := keyCode(k); code != 0 {
			return code
		}
	}
	return 0
}

func (g *Game) Update() error {
	g.tick(pressedCode(inpututil.AppendPressedKeys(nil)))
	return nil
}

// tick latches key into the keyboard register and runs one frame's worth
// of instructions.
func (g *Game) tick(key int16) {
	g.vm.SetKey(key)
	for i := 0; i < stepsPerFrame; i++ {
		if g.vm.Halted {
			break
		}
		g.vm.Step()
	}
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.screenImg == nil {
		g.screenImg = ebiten.NewImage(cpu.ScreenWidth, cpu.ScreenHeight)
	}
	g.screenImg.WritePixels(g.vm.GetFramebufferRGBA())
	screen.DrawImage(g.screenImg, &ebiten.DrawImageOptions{})
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return cpu.ScreenWidth, cpu.ScreenHeight
}

// loadVM translates and assembles a .vm file or directory and returns a
// CPU ready to run it.
func loadVM(path string) (*cpu.CPU, string, error) {
	sources, _, err := utils.CollectSources(path)
	if err != nil {
		return nil, "", err
	}
	units := make([]driver.Unit, 0, len(sources))
	for _, src := range sources {
		data, err := os.ReadFile(src)
		if err != nil {
			return nil, "", err
		}
		units = append(units, driver.Unit{Name: utils.UnitName(src), Source: translator.NewParser(string(data))})
	}

	var out strings.Builder
	if err := driver.New().TranslateUnits(&out, units...); err != nil {
		return nil, "", err
	}
	words, _, err := asm.Assemble(out.String())
	if err != nil {
		return nil, out.String(), err
	}

	vm := cpu.NewCPU()
	if err := vm.Load(words); err != nil {
		return nil, out.String(), err
	}
	vm.RAM[cpu.AddrSP] = int16(cpu.AddrStack)
	return vm, out.String(), nil
}

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: %s program.vm|dir [--show-asm]", filepath.Base(os.Args[0]))
	}
	showAsm := false
	for _, arg := range os.Args[2:] {
		showAsm = showAsm || arg == "--show-asm"
	}

	fullPath, _, err := utils.GetPathInfo(os.Args[1])
	if err != nil {
		log.Fatalf("Bad path: %v", err)
	}
	vm, assembly, err := loadVM(fullPath)
	if err != nil {
		log.Fatalf("Build failed: %v", err)
	}
	if showAsm {
		print("Generated Assembly:\n", assembly, "\n")
	}

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(cpu.ScreenWidth*2, cpu.ScreenHeight*2)
	ebiten.SetWindowTitle("Hack - " + utils.UnitName(fullPath))

	game := &Game{vm: vm}
	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
