package utils

//NotFound is the index returned by matchers when no bounding box fits
const NotFound = -1

//RosterSize is the number of players on court in a doubles match, used when a player id has to be guessed
const RosterSize = 4

//CropSize is the width and height of every player crop given to a classifier
const CropSize = 224

//DefaultExpansion is the factor a player bounding box is scaled by (around its center) before cropping
const DefaultExpansion = 2.0

//FramesAhead is how many frames after the hitting moment the "player after the shot" crop is taken from
const FramesAhead = 10

//PlayerPrefix prefixes numeric player ids in events and descriptions ("p1".."p4")
const PlayerPrefix = "p"

//FrameKeyPrefix is the prefix some detectors put in front of the frame number ("frame_0010")
const FrameKeyPrefix = "frame_"

//FrameFileFormats are the file names a raw frame image may be saved under, tried in order
var FrameFileFormats = []string{"%04d.jpg", "%06d.jpg", "frame_%04d.jpg", "frame_%06d.jpg"}

//DescriptionColors and DescriptionItems are used to invent player descriptions when no annotations exist
var DescriptionColors = []string{"red", "blue", "black", "white", "green", "yellow", "purple", "orange", "gray"}
var DescriptionItems = []string{"shirt", "shorts", "shoes", "hat", "wristband"}
