package stdlib

func registerModules(r *Registry) {
	r.RegisterModule(Module{Name: "math", Doc: "sqrt pow floor ceil abs min max round, constants pi and e", Load: loadMath})
	r.RegisterModule(Module{Name: "string", Doc: "upper lower trim split join contains replace starts ends repeat", Load: loadString})
	r.RegisterModule(Module{Name: "fs", Doc: "read write exists list remove", Load: loadFS})
	r.RegisterModule(Module{Name: "json", Doc: "parse stringify", Load: loadJSON})
	r.RegisterModule(Module{Name: "time", Doc: "now millis sleep", Load: loadTime})
	r.RegisterModule(Module{Name: "random", Doc: "int float choice seed", Load: loadRandom})
}
