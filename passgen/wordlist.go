package passgen

// wordList is a small diceware-style list. 256 words gives 8 bits per
// word; a six word passphrase carries 48 bits plus separator choice.
var wordList = []string{
	"acorn", "alloy", "amber", "anchor", "apron", "arrow", "aspen", "atlas",
	"badge", "bagel", "bamboo", "banjo", "barley", "basil", "beacon", "berry",
	"birch", "bison", "blaze", "bloom", "bluff", "bolt", "bonfire", "breeze",
	"brick", "bridge", "bronze", "brook", "bucket", "bugle", "butter", "cabin",
	"cactus", "camel", "candle", "canoe", "canyon", "carbon", "cargo", "carrot",
	"castle", "cedar", "chalk", "cherry", "chisel", "cider", "cinder", "citrus",
	"clay", "cliff", "clover", "cobalt", "cocoa", "comet", "copper", "coral",
	"cotton", "cradle", "crane", "crater", "creek", "cricket", "crystal", "cumin",
	"dagger", "daisy", "dapple", "dewdrop", "dome", "drift", "drum", "dune",
	"eagle", "easel", "echo", "elder", "ember", "emerald", "engine", "errand",
	"falcon", "fable", "feather", "fennel", "fern", "fiddle", "flint", "flora",
	"fossil", "fox", "frost", "galaxy", "garnet", "geyser", "ginger", "glacier",
	"glade", "goose", "granite", "grape", "gravel", "grove", "gull", "gust",
	"hammer", "harbor", "hazel", "heron", "hickory", "hillside", "holly", "honey",
	"hornet", "husk", "icicle", "indigo", "ink", "iris", "iron", "island",
	"ivory", "jasper", "jigsaw", "juniper", "kayak", "kettle", "kiln", "kiwi",
	"knoll", "lagoon", "lantern", "larch", "lava", "lemon", "lichen", "lilac",
	"linen", "lizard", "lobster", "locust", "loft", "lumber", "lunar", "lyric",
	"magnet", "mango", "maple", "marble", "marsh", "mason", "meadow", "melon",
	"mesa", "mica", "mint", "mirror", "molten", "moss", "moth", "mural",
	"nectar", "nickel", "north", "nutmeg", "oak", "oasis", "ocean", "ochre",
	"olive", "onyx", "opal", "orchard", "osprey", "otter", "oyster", "paddle",
	"pebble", "pecan", "pepper", "pine", "pistachio", "plume", "pond", "poplar",
	"prairie", "prism", "pumice", "quail", "quarry", "quartz", "quill", "quince",
	"raft", "raven", "reed", "ridge", "ripple", "river", "robin", "rocket",
	"rookery", "rose", "rudder", "rust", "saddle", "saffron", "sage", "salmon",
	"sand", "sapphire", "scarlet", "shale", "shore", "silver", "slate", "sleet",
	"spruce", "squall", "stone", "storm", "stream", "summit", "sundial", "swan",
	"tallow", "tansy", "teak", "thicket", "thistle", "timber", "topaz", "torch",
	"trellis", "trout", "tulip", "tundra", "turnip", "umber", "valley", "vapor",
	"velvet", "vine", "violet", "walnut", "walrus", "wander", "waterfall", "willow",
	"windmill", "wren", "yarrow", "yew", "zephyr", "zinc", "zinnia", "zircon",
}
