package recomp

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
)

// externs holds one *ir.Func field per runtime function the distilled
// spec's §6 interface table names, mirroring the teacher's
// pkg/inst.Catalog "one struct, one field per named thing" convention.
// Every field is populated in both modes; in headless mode the init and
// deinit fields hold the init_headless/deinit_headless declarations
// (see declareExterns).
type externs struct {
	init          *ir.Func
	deinit        *ir.Func
	raiseError    *ir.Func
	drawPixel     *ir.Func
	clearPixel    *ir.Func
	getPixel      *ir.Func
	updateScreen  *ir.Func
	clearScreen   *ir.Func
	pushChar      *ir.Func
	flushCharBuf  *ir.Func
	clearCharBuf  *ir.Func
	setNum        *ir.Func
	setSignedness *ir.Func
	writeNum      *ir.Func
	getController *ir.Func
	getRandomNum  *ir.Func
}

// declareExterns adds the runtime's external function declarations to
// mod. In headless mode the init/deinit pair is swapped for its
// headless-suffixed sibling, per distilled spec §6; every other extern
// is declared identically in both modes (headless-ness of the graphics
// and controller reads is a lowering-time decision in lower.go, not a
// different symbol).
func declareExterns(mod *ir.Module, headless bool) *externs {
	initName, deinitName := "init", "deinit"
	if headless {
		initName, deinitName = "init_headless", "deinit_headless"
	}

	void := func(name string, params ...*ir.Param) *ir.Func {
		return mod.NewFunc(name, types.Void, params...)
	}
	p := func(name string, typ types.Type) *ir.Param {
		return ir.NewParam(name, typ)
	}

	e := &externs{
		init:          void(initName),
		deinit:        void(deinitName),
		raiseError:    void("raise_error"),
		drawPixel:     void("draw_pixel", p("x", types.I8), p("y", types.I8)),
		clearPixel:    void("clear_pixel", p("x", types.I8), p("y", types.I8)),
		getPixel:      mod.NewFunc("get_pixel", types.I8, p("x", types.I8), p("y", types.I8)),
		updateScreen:  void("update_screen"),
		clearScreen:   void("clear_screen"),
		pushChar:      void("push_char", p("c", types.I8)),
		flushCharBuf:  void("flush_char_buffer"),
		clearCharBuf:  void("clear_char_buffer"),
		setNum:        void("set_num", p("n", types.I8)),
		setSignedness: void("set_signedness", p("signed", types.I1)),
		writeNum:      void("write_num"),
		getController: mod.NewFunc("get_controller", types.I8),
		getRandomNum:  mod.NewFunc("get_random_num", types.I8),
	}
	return e
}
