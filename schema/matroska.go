package schema

// Well-known element IDs. The list covers the EBML header, the Segment and
// every level-1 element plus the children the editing and summary paths care
// about; IDs outside the table read as Unsupported and pass through
// untouched.
const (
	IDEBML               ID = 0x1A45DFA3
	IDEBMLVersion        ID = 0x4286
	IDEBMLReadVersion    ID = 0x42F7
	IDEBMLMaxIDLength    ID = 0x42F2
	IDEBMLMaxSizeLength  ID = 0x42F3
	IDDocType            ID = 0x4282
	IDDocTypeVersion     ID = 0x4287
	IDDocTypeReadVersion ID = 0x4285

	IDVoid  ID = 0xEC
	IDCRC32 ID = 0xBF

	IDSegment ID = 0x18538067

	IDSeekHead     ID = 0x114D9B74
	IDSeek         ID = 0x4DBB
	IDSeekID       ID = 0x53AB
	IDSeekPosition ID = 0x53AC

	IDInfo            ID = 0x1549A966
	IDSegmentUID      ID = 0x73A4
	IDSegmentFilename ID = 0x7384
	IDPrevUID         ID = 0x3CB923
	IDNextUID         ID = 0x3EB923
	IDSegmentFamily   ID = 0x4444
	IDTimecodeScale   ID = 0x2AD7B1
	IDDuration        ID = 0x4489
	IDDateUTC         ID = 0x4461
	IDTitle           ID = 0x7BA9
	IDMuxingApp       ID = 0x4D80
	IDWritingApp      ID = 0x5741

	IDCluster     ID = 0x1F43B675
	IDTimecode    ID = 0xE7
	IDPosition    ID = 0xA7
	IDPrevSize    ID = 0xAB
	IDSimpleBlock ID = 0xA3
	IDBlockGroup  ID = 0xA0
	IDBlock       ID = 0xA1

	IDTracks          ID = 0x1654AE6B
	IDTrackEntry      ID = 0xAE
	IDTrackNumber     ID = 0xD7
	IDTrackUID        ID = 0x73C5
	IDTrackType       ID = 0x83
	IDFlagEnabled     ID = 0xB9
	IDFlagDefault     ID = 0x88
	IDFlagForced      ID = 0x55AA
	IDFlagLacing      ID = 0x9C
	IDMinCache        ID = 0x6DE7
	IDDefaultDuration ID = 0x23E383
	IDName            ID = 0x536E
	IDLanguage        ID = 0x22B59C
	IDCodecID         ID = 0x86
	IDCodecPrivate    ID = 0x63A2
	IDCodecName       ID = 0x258688
	IDCodecDelay      ID = 0x56AA
	IDSeekPreRoll     ID = 0x56BB

	IDVideo           ID = 0xE0
	IDFlagInterlaced  ID = 0x9A
	IDStereoMode      ID = 0x53B8
	IDAlphaMode       ID = 0x53C0
	IDPixelWidth      ID = 0xB0
	IDPixelHeight     ID = 0xBA
	IDPixelCropBottom ID = 0x54AA
	IDPixelCropTop    ID = 0x54BB
	IDPixelCropLeft   ID = 0x54CC
	IDPixelCropRight  ID = 0x54DD
	IDDisplayWidth    ID = 0x54B0
	IDDisplayHeight   ID = 0x54BA
	IDDisplayUnit     ID = 0x54B2
	IDAspectRatioType ID = 0x54B3
	IDColourSpace     ID = 0x2EB524

	IDAudio                   ID = 0xE1
	IDSamplingFrequency       ID = 0xB5
	IDOutputSamplingFrequency ID = 0x78B5
	IDChannels                ID = 0x9F
	IDBitDepth                ID = 0x6264

	IDContentEncodings     ID = 0x6D80
	IDContentEncoding      ID = 0x6240
	IDContentEncodingOrder ID = 0x5031
	IDContentEncodingScope ID = 0x5032
	IDContentEncodingType  ID = 0x5033
	IDContentCompression   ID = 0x5034
	IDContentCompAlgo      ID = 0x4254
	IDContentCompSettings  ID = 0x4255

	IDCues               ID = 0x1C53BB6B
	IDCuePoint           ID = 0xBB
	IDCueTime            ID = 0xB3
	IDCueTrackPositions  ID = 0xB7
	IDCueTrack           ID = 0xF7
	IDCueClusterPosition ID = 0xF1

	IDAttachments     ID = 0x1941A469
	IDAttachedFile    ID = 0x61A7
	IDFileDescription ID = 0x467E
	IDFileName        ID = 0x466E
	IDFileMimeType    ID = 0x6460
	IDFileData        ID = 0x465C
	IDFileUID         ID = 0x46AE

	IDChapters           ID = 0x1043A770
	IDEditionEntry       ID = 0x45B9
	IDEditionUID         ID = 0x45BC
	IDEditionFlagHidden  ID = 0x45BD
	IDEditionFlagDefault ID = 0x45DB
	IDEditionFlagOrdered ID = 0x45DD
	IDChapterAtom        ID = 0xB6
	IDChapterUID         ID = 0x73C4
	IDChapterStringUID   ID = 0x5654
	IDChapterTimeStart   ID = 0x91
	IDChapterTimeEnd     ID = 0x92
	IDChapterFlagHidden  ID = 0x98
	IDChapterFlagEnabled ID = 0x4598
	IDChapterTrack       ID = 0x8F
	IDChapterTrackNumber ID = 0x89
	IDChapterDisplay     ID = 0x80
	IDChapString         ID = 0x85
	IDChapLanguage       ID = 0x437C
	IDChapCountry        ID = 0x437E

	IDTags            ID = 0x1254C367
	IDTag             ID = 0x7373
	IDTargets         ID = 0x63C0
	IDTargetTypeValue ID = 0x68CA
	IDTargetType      ID = 0x63CA
	IDTagTrackUID     ID = 0x63C5
	IDTagEditionUID   ID = 0x63C9
	IDTagChapterUID   ID = 0x63C4
	IDTagAttachmentUID ID = 0x63C6
	IDSimpleTag       ID = 0x67C8
	IDTagName         ID = 0x45A3
	IDTagLanguage     ID = 0x447A
	IDTagDefault      ID = 0x4484
	IDTagString       ID = 0x4487
	IDTagBinary       ID = 0x4485
)

// IDReserved is an internal-only ID used for placeholder elements covering
// frozen byte regions. 0xFF is the reserved all-ones 1-byte VINT, so it can
// never occur in a real file; placeholders are never encoded.
const IDReserved ID = 0xFF

var positive = &Range{Min: 1, Max: 1<<63 - 1}
var boolean = &Range{Min: 0, Max: 1}

var matroskaDefs = []Def{
	// EBML header.
	{ID: IDEBML, Name: "EBML", Kind: KindMaster, Root: true, Mandatory: true, Multiple: true},
	{ID: IDEBMLVersion, Name: "EBMLVersion", Kind: KindUint, Parent: IDEBML, Default: uint64(1), Range: positive},
	{ID: IDEBMLReadVersion, Name: "EBMLReadVersion", Kind: KindUint, Parent: IDEBML, Default: uint64(1), Range: positive},
	{ID: IDEBMLMaxIDLength, Name: "EBMLMaxIDLength", Kind: KindUint, Parent: IDEBML, Default: uint64(4), Range: positive},
	{ID: IDEBMLMaxSizeLength, Name: "EBMLMaxSizeLength", Kind: KindUint, Parent: IDEBML, Default: uint64(8), Range: positive},
	{ID: IDDocType, Name: "DocType", Kind: KindString, Parent: IDEBML, Default: "matroska"},
	{ID: IDDocTypeVersion, Name: "DocTypeVersion", Kind: KindUint, Parent: IDEBML, Default: uint64(1), Range: positive},
	{ID: IDDocTypeReadVersion, Name: "DocTypeReadVersion", Kind: KindUint, Parent: IDEBML, Default: uint64(1), Range: positive},

	// Global elements.
	{ID: IDVoid, Name: "Void", Kind: KindVoid, Global: true, Multiple: true},
	{ID: IDCRC32, Name: "CRC-32", Kind: KindBinary, Global: true},

	// Segment and index.
	{ID: IDSegment, Name: "Segment", Kind: KindMaster, Root: true, Multiple: true},
	{ID: IDSeekHead, Name: "SeekHead", Kind: KindMaster, Parent: IDSegment, Multiple: true},
	{ID: IDSeek, Name: "Seek", Kind: KindMaster, Parent: IDSeekHead, Mandatory: true, Multiple: true},
	{ID: IDSeekID, Name: "SeekID", Kind: KindBinary, Parent: IDSeek, Mandatory: true},
	{ID: IDSeekPosition, Name: "SeekPosition", Kind: KindUint, Parent: IDSeek, Mandatory: true, DataSizeMin: 8},

	// Info.
	{ID: IDInfo, Name: "Info", Kind: KindMaster, Parent: IDSegment, Mandatory: true, Multiple: true},
	{ID: IDSegmentUID, Name: "SegmentUID", Kind: KindBinary, Parent: IDInfo},
	{ID: IDSegmentFilename, Name: "SegmentFilename", Kind: KindUnicode, Parent: IDInfo},
	{ID: IDPrevUID, Name: "PrevUID", Kind: KindBinary, Parent: IDInfo},
	{ID: IDNextUID, Name: "NextUID", Kind: KindBinary, Parent: IDInfo},
	{ID: IDSegmentFamily, Name: "SegmentFamily", Kind: KindBinary, Parent: IDInfo, Multiple: true},
	{ID: IDTimecodeScale, Name: "TimecodeScale", Kind: KindUint, Parent: IDInfo, Default: uint64(1000000), Range: positive},
	{ID: IDDuration, Name: "Duration", Kind: KindFloat, Parent: IDInfo, Range: &Range{Min: 0, Max: 1e300, Exclusive: true}},
	{ID: IDDateUTC, Name: "DateUTC", Kind: KindDate, Parent: IDInfo},
	{ID: IDTitle, Name: "Title", Kind: KindUnicode, Parent: IDInfo},
	{ID: IDMuxingApp, Name: "MuxingApp", Kind: KindUnicode, Parent: IDInfo, Mandatory: true},
	{ID: IDWritingApp, Name: "WritingApp", Kind: KindUnicode, Parent: IDInfo, Mandatory: true},

	// Cluster. Deferred: summary reads skip its children, and the segment
	// normalizer freezes its byte extent.
	{ID: IDCluster, Name: "Cluster", Kind: KindMaster, Parent: IDSegment, Multiple: true, Defer: true},
	{ID: IDTimecode, Name: "Timecode", Kind: KindUint, Parent: IDCluster, Mandatory: true},
	{ID: IDPosition, Name: "Position", Kind: KindUint, Parent: IDCluster},
	{ID: IDPrevSize, Name: "PrevSize", Kind: KindUint, Parent: IDCluster},
	{ID: IDSimpleBlock, Name: "SimpleBlock", Kind: KindBinary, Parent: IDCluster, Multiple: true},
	{ID: IDBlockGroup, Name: "BlockGroup", Kind: KindMaster, Parent: IDCluster, Multiple: true},
	{ID: IDBlock, Name: "Block", Kind: KindBinary, Parent: IDBlockGroup, Mandatory: true},

	// Tracks.
	{ID: IDTracks, Name: "Tracks", Kind: KindMaster, Parent: IDSegment, Multiple: true},
	{ID: IDTrackEntry, Name: "TrackEntry", Kind: KindMaster, Parent: IDTracks, Mandatory: true, Multiple: true},
	{ID: IDTrackNumber, Name: "TrackNumber", Kind: KindUint, Parent: IDTrackEntry, Mandatory: true, Range: positive},
	{ID: IDTrackUID, Name: "TrackUID", Kind: KindUint, Parent: IDTrackEntry, Mandatory: true, Range: positive},
	{ID: IDTrackType, Name: "TrackType", Kind: KindUint, Parent: IDTrackEntry, Mandatory: true, Range: &Range{Min: 1, Max: 254}},
	{ID: IDFlagEnabled, Name: "FlagEnabled", Kind: KindUint, Parent: IDTrackEntry, Default: uint64(1), Range: boolean},
	{ID: IDFlagDefault, Name: "FlagDefault", Kind: KindUint, Parent: IDTrackEntry, Default: uint64(1), Range: boolean},
	{ID: IDFlagForced, Name: "FlagForced", Kind: KindUint, Parent: IDTrackEntry, Default: uint64(0), Range: boolean},
	{ID: IDFlagLacing, Name: "FlagLacing", Kind: KindUint, Parent: IDTrackEntry, Default: uint64(1), Range: boolean},
	{ID: IDMinCache, Name: "MinCache", Kind: KindUint, Parent: IDTrackEntry, Default: uint64(0)},
	{ID: IDDefaultDuration, Name: "DefaultDuration", Kind: KindUint, Parent: IDTrackEntry, Range: positive},
	{ID: IDName, Name: "Name", Kind: KindUnicode, Parent: IDTrackEntry},
	{ID: IDLanguage, Name: "Language", Kind: KindString, Parent: IDTrackEntry, Default: "eng"},
	{ID: IDCodecID, Name: "CodecID", Kind: KindString, Parent: IDTrackEntry, Mandatory: true},
	{ID: IDCodecPrivate, Name: "CodecPrivate", Kind: KindBinary, Parent: IDTrackEntry},
	{ID: IDCodecName, Name: "CodecName", Kind: KindUnicode, Parent: IDTrackEntry},
	{ID: IDCodecDelay, Name: "CodecDelay", Kind: KindUint, Parent: IDTrackEntry, Default: uint64(0)},
	{ID: IDSeekPreRoll, Name: "SeekPreRoll", Kind: KindUint, Parent: IDTrackEntry, Default: uint64(0)},

	// Video.
	{ID: IDVideo, Name: "Video", Kind: KindMaster, Parent: IDTrackEntry},
	{ID: IDFlagInterlaced, Name: "FlagInterlaced", Kind: KindUint, Parent: IDVideo, Default: uint64(0)},
	{ID: IDStereoMode, Name: "StereoMode", Kind: KindUint, Parent: IDVideo, Default: uint64(0)},
	{ID: IDAlphaMode, Name: "AlphaMode", Kind: KindUint, Parent: IDVideo, Default: uint64(0)},
	{ID: IDPixelWidth, Name: "PixelWidth", Kind: KindUint, Parent: IDVideo, Mandatory: true, Range: positive},
	{ID: IDPixelHeight, Name: "PixelHeight", Kind: KindUint, Parent: IDVideo, Mandatory: true, Range: positive},
	{ID: IDPixelCropBottom, Name: "PixelCropBottom", Kind: KindUint, Parent: IDVideo, Default: uint64(0)},
	{ID: IDPixelCropTop, Name: "PixelCropTop", Kind: KindUint, Parent: IDVideo, Default: uint64(0)},
	{ID: IDPixelCropLeft, Name: "PixelCropLeft", Kind: KindUint, Parent: IDVideo, Default: uint64(0)},
	{ID: IDPixelCropRight, Name: "PixelCropRight", Kind: KindUint, Parent: IDVideo, Default: uint64(0)},
	{ID: IDDisplayWidth, Name: "DisplayWidth", Kind: KindUint, Parent: IDVideo, Range: positive},
	{ID: IDDisplayHeight, Name: "DisplayHeight", Kind: KindUint, Parent: IDVideo, Range: positive},
	{ID: IDDisplayUnit, Name: "DisplayUnit", Kind: KindUint, Parent: IDVideo, Default: uint64(0)},
	{ID: IDAspectRatioType, Name: "AspectRatioType", Kind: KindUint, Parent: IDVideo, Default: uint64(0)},
	{ID: IDColourSpace, Name: "ColourSpace", Kind: KindBinary, Parent: IDVideo},

	// Audio.
	{ID: IDAudio, Name: "Audio", Kind: KindMaster, Parent: IDTrackEntry},
	{ID: IDSamplingFrequency, Name: "SamplingFrequency", Kind: KindFloat, Parent: IDAudio, Default: float64(8000), Range: &Range{Min: 0, Max: 1e300, Exclusive: true}},
	{ID: IDOutputSamplingFrequency, Name: "OutputSamplingFrequency", Kind: KindFloat, Parent: IDAudio, Range: &Range{Min: 0, Max: 1e300, Exclusive: true}},
	{ID: IDChannels, Name: "Channels", Kind: KindUint, Parent: IDAudio, Default: uint64(1), Range: positive},
	{ID: IDBitDepth, Name: "BitDepth", Kind: KindUint, Parent: IDAudio, Range: positive},

	// Content encoding chain.
	{ID: IDContentEncodings, Name: "ContentEncodings", Kind: KindMaster, Parent: IDTrackEntry},
	{ID: IDContentEncoding, Name: "ContentEncoding", Kind: KindMaster, Parent: IDContentEncodings, Mandatory: true, Multiple: true},
	{ID: IDContentEncodingOrder, Name: "ContentEncodingOrder", Kind: KindUint, Parent: IDContentEncoding, Default: uint64(0)},
	{ID: IDContentEncodingScope, Name: "ContentEncodingScope", Kind: KindUint, Parent: IDContentEncoding, Default: uint64(1), Range: positive},
	{ID: IDContentEncodingType, Name: "ContentEncodingType", Kind: KindUint, Parent: IDContentEncoding, Default: uint64(0)},
	{ID: IDContentCompression, Name: "ContentCompression", Kind: KindMaster, Parent: IDContentEncoding},
	{ID: IDContentCompAlgo, Name: "ContentCompAlgo", Kind: KindUint, Parent: IDContentCompression, Default: uint64(0)},
	{ID: IDContentCompSettings, Name: "ContentCompSettings", Kind: KindBinary, Parent: IDContentCompression},

	// Cues. Deferred like Cluster; the normalizer never moves it.
	{ID: IDCues, Name: "Cues", Kind: KindMaster, Parent: IDSegment, Defer: true},
	{ID: IDCuePoint, Name: "CuePoint", Kind: KindMaster, Parent: IDCues, Mandatory: true, Multiple: true},
	{ID: IDCueTime, Name: "CueTime", Kind: KindUint, Parent: IDCuePoint, Mandatory: true},
	{ID: IDCueTrackPositions, Name: "CueTrackPositions", Kind: KindMaster, Parent: IDCuePoint, Mandatory: true, Multiple: true},
	{ID: IDCueTrack, Name: "CueTrack", Kind: KindUint, Parent: IDCueTrackPositions, Mandatory: true, Range: positive},
	{ID: IDCueClusterPosition, Name: "CueClusterPosition", Kind: KindUint, Parent: IDCueTrackPositions, Mandatory: true},

	// Attachments.
	{ID: IDAttachments, Name: "Attachments", Kind: KindMaster, Parent: IDSegment},
	{ID: IDAttachedFile, Name: "AttachedFile", Kind: KindMaster, Parent: IDAttachments, Mandatory: true, Multiple: true},
	{ID: IDFileDescription, Name: "FileDescription", Kind: KindUnicode, Parent: IDAttachedFile},
	{ID: IDFileName, Name: "FileName", Kind: KindUnicode, Parent: IDAttachedFile, Mandatory: true},
	{ID: IDFileMimeType, Name: "FileMimeType", Kind: KindString, Parent: IDAttachedFile, Mandatory: true},
	{ID: IDFileData, Name: "FileData", Kind: KindBinary, Parent: IDAttachedFile, Mandatory: true},
	{ID: IDFileUID, Name: "FileUID", Kind: KindUint, Parent: IDAttachedFile, Mandatory: true, Range: positive},

	// Chapters.
	{ID: IDChapters, Name: "Chapters", Kind: KindMaster, Parent: IDSegment},
	{ID: IDEditionEntry, Name: "EditionEntry", Kind: KindMaster, Parent: IDChapters, Mandatory: true, Multiple: true},
	{ID: IDEditionUID, Name: "EditionUID", Kind: KindUint, Parent: IDEditionEntry, Range: positive},
	{ID: IDEditionFlagHidden, Name: "EditionFlagHidden", Kind: KindUint, Parent: IDEditionEntry, Default: uint64(0), Range: boolean},
	{ID: IDEditionFlagDefault, Name: "EditionFlagDefault", Kind: KindUint, Parent: IDEditionEntry, Default: uint64(0), Range: boolean},
	{ID: IDEditionFlagOrdered, Name: "EditionFlagOrdered", Kind: KindUint, Parent: IDEditionEntry, Default: uint64(0), Range: boolean},
	{ID: IDChapterAtom, Name: "ChapterAtom", Kind: KindMaster, Parent: IDEditionEntry, Mandatory: true, Multiple: true, Recursive: true},
	{ID: IDChapterUID, Name: "ChapterUID", Kind: KindUint, Parent: IDChapterAtom, Mandatory: true, Range: positive},
	{ID: IDChapterStringUID, Name: "ChapterStringUID", Kind: KindUnicode, Parent: IDChapterAtom},
	{ID: IDChapterTimeStart, Name: "ChapterTimeStart", Kind: KindUint, Parent: IDChapterAtom, Mandatory: true},
	{ID: IDChapterTimeEnd, Name: "ChapterTimeEnd", Kind: KindUint, Parent: IDChapterAtom},
	{ID: IDChapterFlagHidden, Name: "ChapterFlagHidden", Kind: KindUint, Parent: IDChapterAtom, Default: uint64(0), Range: boolean},
	{ID: IDChapterFlagEnabled, Name: "ChapterFlagEnabled", Kind: KindUint, Parent: IDChapterAtom, Default: uint64(1), Range: boolean},
	{ID: IDChapterTrack, Name: "ChapterTrack", Kind: KindMaster, Parent: IDChapterAtom},
	{ID: IDChapterTrackNumber, Name: "ChapterTrackNumber", Kind: KindUint, Parent: IDChapterTrack, Mandatory: true, Multiple: true, Range: positive},
	{ID: IDChapterDisplay, Name: "ChapterDisplay", Kind: KindMaster, Parent: IDChapterAtom, Multiple: true},
	{ID: IDChapString, Name: "ChapString", Kind: KindUnicode, Parent: IDChapterDisplay, Mandatory: true},
	{ID: IDChapLanguage, Name: "ChapLanguage", Kind: KindString, Parent: IDChapterDisplay, Default: "eng", Multiple: true},
	{ID: IDChapCountry, Name: "ChapCountry", Kind: KindString, Parent: IDChapterDisplay, Multiple: true},

	// Tags.
	{ID: IDTags, Name: "Tags", Kind: KindMaster, Parent: IDSegment, Multiple: true},
	{ID: IDTag, Name: "Tag", Kind: KindMaster, Parent: IDTags, Mandatory: true, Multiple: true},
	{ID: IDTargets, Name: "Targets", Kind: KindMaster, Parent: IDTag, Mandatory: true},
	{ID: IDTargetTypeValue, Name: "TargetTypeValue", Kind: KindUint, Parent: IDTargets, Default: uint64(50)},
	{ID: IDTargetType, Name: "TargetType", Kind: KindString, Parent: IDTargets},
	{ID: IDTagTrackUID, Name: "TagTrackUID", Kind: KindUint, Parent: IDTargets, Default: uint64(0), Multiple: true},
	{ID: IDTagEditionUID, Name: "TagEditionUID", Kind: KindUint, Parent: IDTargets, Default: uint64(0), Multiple: true},
	{ID: IDTagChapterUID, Name: "TagChapterUID", Kind: KindUint, Parent: IDTargets, Default: uint64(0), Multiple: true},
	{ID: IDTagAttachmentUID, Name: "TagAttachmentUID", Kind: KindUint, Parent: IDTargets, Default: uint64(0), Multiple: true},
	{ID: IDSimpleTag, Name: "SimpleTag", Kind: KindMaster, Parent: IDTag, Mandatory: true, Multiple: true, Recursive: true},
	{ID: IDTagName, Name: "TagName", Kind: KindUnicode, Parent: IDSimpleTag, Mandatory: true},
	{ID: IDTagLanguage, Name: "TagLanguage", Kind: KindString, Parent: IDSimpleTag, Default: "und"},
	{ID: IDTagDefault, Name: "TagDefault", Kind: KindUint, Parent: IDSimpleTag, Default: uint64(1), Range: boolean},
	{ID: IDTagString, Name: "TagString", Kind: KindUnicode, Parent: IDSimpleTag},
	{ID: IDTagBinary, Name: "TagBinary", Kind: KindBinary, Parent: IDSimpleTag},
}

var matroska = NewRegistry(matroskaDefs)

// Matroska returns the built-in Matroska element dictionary. The returned
// registry is shared and must not be mutated; use Extend to derive a
// modified one.
func Matroska() *Registry {
	return matroska
}

// Extend returns a copy of r with the given defs added, overriding existing
// entries with the same ID.
func (r *Registry) Extend(defs []Def) *Registry {
	out := &Registry{
		byID:   make(map[ID]*Def, len(r.byID)+len(defs)),
		byName: make(map[string]*Def, len(r.byName)+len(defs)),
	}
	for id, d := range r.byID {
		out.byID[id] = d
	}
	for name, d := range r.byName {
		out.byName[name] = d
	}
	for i := range defs {
		out.add(&defs[i])
	}

	return out
}
