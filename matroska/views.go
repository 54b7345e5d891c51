// Package matroska layers document-type awareness over the generic element
// tree: the Segment with its SeekHead-guided summary reading and
// normalization pass, and typed views exposing the common metadata fields
// of Info, TrackEntry, AttachedFile and friends as plain accessors.
package matroska

import (
	"fmt"
	"iter"
	"time"

	"github.com/arloliu/ebmlkit/element"
	"github.com/arloliu/ebmlkit/errs"
	"github.com/arloliu/ebmlkit/schema"
)

// lastAtomic returns the last child with the given name as an Atomic, or
// nil. The last instance wins, matching how duplicate metadata children are
// resolved.
func lastAtomic(m *element.Master, name string) *element.Atomic {
	def := m.Registry().ByName(name)
	if def == nil {
		return nil
	}
	a, _ := m.LastChildWithID(def.ID).(*element.Atomic)

	return a
}

func lastMaster(m *element.Master, name string) *element.Master {
	def := m.Registry().ByName(name)
	if def == nil {
		return nil
	}
	ch, _ := m.LastChildWithID(def.ID).(*element.Master)

	return ch
}

// ensureAtomic returns the last child with the given name, creating and
// appending a fresh one when absent.
func ensureAtomic(m *element.Master, name string) (*element.Atomic, error) {
	if a := lastAtomic(m, name); a != nil {
		return a, nil
	}
	el, err := element.New(m.Registry(), name)
	if err != nil {
		return nil, err
	}
	a, ok := el.(*element.Atomic)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not an atomic element", errs.ErrKindMismatch, name)
	}
	m.AppendChild(a)

	return a, nil
}

func ensureMaster(m *element.Master, name string) (*element.Master, error) {
	if ch := lastMaster(m, name); ch != nil {
		return ch, nil
	}
	ch, err := element.NewMaster(m.Registry(), name)
	if err != nil {
		return nil, err
	}
	m.AppendChild(ch)

	return ch, nil
}

// The child* getters fall back to the schema default when the child is
// absent.

func childUint(m *element.Master, name string) uint64 {
	if a := lastAtomic(m, name); a != nil {
		return a.Uint()
	}
	if def := m.Registry().ByName(name); def != nil {
		return def.DefaultUint()
	}

	return 0
}

func childFloat(m *element.Master, name string) float64 {
	if a := lastAtomic(m, name); a != nil {
		return a.Float()
	}
	if def := m.Registry().ByName(name); def != nil {
		return def.DefaultFloat()
	}

	return 0
}

func childText(m *element.Master, name string) string {
	if a := lastAtomic(m, name); a != nil {
		return a.Text()
	}
	if def := m.Registry().ByName(name); def != nil {
		return def.DefaultString()
	}

	return ""
}

func childBytes(m *element.Master, name string) []byte {
	if a := lastAtomic(m, name); a != nil {
		return a.Bytes()
	}

	return nil
}

func childDate(m *element.Master, name string) (time.Time, bool) {
	if a := lastAtomic(m, name); a != nil {
		return a.Date(), true
	}

	return time.Time{}, false
}

func hasChild(m *element.Master, name string) bool {
	return lastAtomic(m, name) != nil
}

func setChildUint(m *element.Master, name string, v uint64) error {
	a, err := ensureAtomic(m, name)
	if err != nil {
		return err
	}

	return a.SetUint(v)
}

func setChildFloat(m *element.Master, name string, v float64) error {
	a, err := ensureAtomic(m, name)
	if err != nil {
		return err
	}

	return a.SetFloat(v)
}

func setChildText(m *element.Master, name string, v string) error {
	a, err := ensureAtomic(m, name)
	if err != nil {
		return err
	}

	return a.SetText(v)
}

func setChildBytes(m *element.Master, name string, v []byte) error {
	a, err := ensureAtomic(m, name)
	if err != nil {
		return err
	}

	return a.SetBytes(v)
}

func setChildDate(m *element.Master, name string, v time.Time) error {
	a, err := ensureAtomic(m, name)
	if err != nil {
		return err
	}

	return a.SetDate(v)
}

func removeChildren(m *element.Master, name string) {
	m.RemoveChildrenNamed(name)
}

// masters iterates over child masters with the given name.
func masters(m *element.Master, name string) iter.Seq[*element.Master] {
	return func(yield func(*element.Master) bool) {
		for ch := range m.ChildrenNamed(name) {
			if mm, ok := ch.(*element.Master); ok && !yield(mm) {
				return
			}
		}
	}
}

// EBMLHead wraps the EBML header element at the front of the file.
type EBMLHead struct {
	M *element.Master
}

func (h EBMLHead) Version() uint64         { return childUint(h.M, "EBMLVersion") }
func (h EBMLHead) ReadVersion() uint64     { return childUint(h.M, "EBMLReadVersion") }
func (h EBMLHead) MaxIDLength() uint64     { return childUint(h.M, "EBMLMaxIDLength") }
func (h EBMLHead) MaxSizeLength() uint64   { return childUint(h.M, "EBMLMaxSizeLength") }
func (h EBMLHead) DocType() string         { return childText(h.M, "DocType") }
func (h EBMLHead) DocTypeVersion() uint64  { return childUint(h.M, "DocTypeVersion") }
func (h EBMLHead) DocTypeReadVersion() uint64 { return childUint(h.M, "DocTypeReadVersion") }

// CheckReadHandled reports whether this library can read the document.
func (h EBMLHead) CheckReadHandled() bool {
	return h.ReadVersion() <= 1 && h.MaxIDLength() <= 4 &&
		h.MaxSizeLength() <= 8 && h.DocType() == "matroska" &&
		h.DocTypeReadVersion() <= 4
}

// CheckWriteHandled reports whether this library can write the document
// back without violating its declared version.
func (h EBMLHead) CheckWriteHandled() bool {
	return h.Version() <= 1 && h.MaxIDLength() == 4 &&
		h.MaxSizeLength() == 8 && h.DocType() == "matroska" &&
		h.DocTypeVersion() <= 4
}

// Info wraps an Info element.
type Info struct {
	M *element.Master
}

func (i Info) SegmentUID() []byte    { return childBytes(i.M, "SegmentUID") }
func (i Info) TimecodeScale() uint64 { return childUint(i.M, "TimecodeScale") }
func (i Info) Title() string         { return childText(i.M, "Title") }
func (i Info) HasTitle() bool        { return hasChild(i.M, "Title") }
func (i Info) MuxingApp() string     { return childText(i.M, "MuxingApp") }
func (i Info) WritingApp() string    { return childText(i.M, "WritingApp") }

// Duration returns the raw (timecode-scaled) duration value, or 0 when
// unset.
func (i Info) Duration() float64 { return childFloat(i.M, "Duration") }

func (i Info) DateUTC() (time.Time, bool) { return childDate(i.M, "DateUTC") }

func (i Info) SetTitle(title string) error      { return setChildText(i.M, "Title", title) }
func (i Info) RemoveTitle()                     { removeChildren(i.M, "Title") }
func (i Info) SetMuxingApp(app string) error    { return setChildText(i.M, "MuxingApp", app) }
func (i Info) SetWritingApp(app string) error   { return setChildText(i.M, "WritingApp", app) }
func (i Info) SetDuration(v float64) error      { return setChildFloat(i.M, "Duration", v) }
func (i Info) SetDateUTC(t time.Time) error     { return setChildDate(i.M, "DateUTC", t) }
func (i Info) SetSegmentUID(uid []byte) error   { return setChildBytes(i.M, "SegmentUID", uid) }
func (i Info) SetTimecodeScale(v uint64) error  { return setChildUint(i.M, "TimecodeScale", v) }

// Seek wraps one Seek entry of a SeekHead.
type Seek struct {
	M *element.Master
}

// TargetID returns the indexed element's ID decoded from the SeekID
// payload.
func (s Seek) TargetID() schema.ID {
	raw := childBytes(s.M, "SeekID")
	var id uint64
	for _, b := range raw {
		id = id<<8 | uint64(b)
	}

	return schema.ID(id)
}

// Position returns the indexed element's offset relative to the segment
// data region.
func (s Seek) Position() uint64 { return childUint(s.M, "SeekPosition") }

func (s Seek) SetTargetID(id schema.ID) error {
	return setChildBytes(s.M, "SeekID", id.Bytes())
}

func (s Seek) SetPosition(pos uint64) error {
	return setChildUint(s.M, "SeekPosition", pos)
}

// TrackType values of the TrackType element.
const (
	TrackTypeVideo    = 1
	TrackTypeAudio    = 2
	TrackTypeComplex  = 3
	TrackTypeLogo     = 16
	TrackTypeSubtitle = 17
	TrackTypeButtons  = 18
	TrackTypeControl  = 32
)

var trackTypeNames = map[uint64]string{
	TrackTypeVideo:    "video",
	TrackTypeAudio:    "audio",
	TrackTypeComplex:  "complex",
	TrackTypeLogo:     "logo",
	TrackTypeSubtitle: "subtitle",
	TrackTypeButtons:  "buttons",
	TrackTypeControl:  "control",
}

// TrackEntry wraps a TrackEntry element.
type TrackEntry struct {
	M *element.Master
}

func (t TrackEntry) Number() uint64     { return childUint(t.M, "TrackNumber") }
func (t TrackEntry) UID() uint64        { return childUint(t.M, "TrackUID") }
func (t TrackEntry) Type() uint64       { return childUint(t.M, "TrackType") }
func (t TrackEntry) Name() string       { return childText(t.M, "Name") }
func (t TrackEntry) Language() string   { return childText(t.M, "Language") }
func (t TrackEntry) CodecID() string    { return childText(t.M, "CodecID") }
func (t TrackEntry) CodecName() string  { return childText(t.M, "CodecName") }
func (t TrackEntry) CodecPrivate() []byte { return childBytes(t.M, "CodecPrivate") }
func (t TrackEntry) FlagEnabled() bool  { return childUint(t.M, "FlagEnabled") != 0 }
func (t TrackEntry) FlagDefault() bool  { return childUint(t.M, "FlagDefault") != 0 }
func (t TrackEntry) FlagForced() bool   { return childUint(t.M, "FlagForced") != 0 }
func (t TrackEntry) FlagLacing() bool   { return childUint(t.M, "FlagLacing") != 0 }

// TypeName returns the track type as a string, or "unknown".
func (t TrackEntry) TypeName() string {
	if s, ok := trackTypeNames[t.Type()]; ok {
		return s
	}

	return "unknown"
}

// Video returns the Video sub-view, if present.
func (t TrackEntry) Video() (Video, bool) {
	if m := lastMaster(t.M, "Video"); m != nil {
		return Video{M: m}, true
	}

	return Video{}, false
}

// Audio returns the Audio sub-view, if present.
func (t TrackEntry) Audio() (Audio, bool) {
	if m := lastMaster(t.M, "Audio"); m != nil {
		return Audio{M: m}, true
	}

	return Audio{}, false
}

func (t TrackEntry) SetName(name string) error { return setChildText(t.M, "Name", name) }
func (t TrackEntry) SetLanguage(l string) error { return setChildText(t.M, "Language", l) }

func (t TrackEntry) String() string {
	s := fmt.Sprintf("TrackEntry: %s lang=%s codec=%s num=%d uid=%d",
		t.TypeName(), t.Language(), t.CodecID(), t.Number(), t.UID())
	if n := t.Name(); n != "" {
		s += ": " + n
	}

	return s
}

// Video wraps a Video element.
type Video struct {
	M *element.Master
}

func (v Video) PixelWidth() uint64  { return childUint(v.M, "PixelWidth") }
func (v Video) PixelHeight() uint64 { return childUint(v.M, "PixelHeight") }

// DisplayWidth defaults to the pixel width when unset, per the Matroska
// rules.
func (v Video) DisplayWidth() uint64 {
	if hasChild(v.M, "DisplayWidth") {
		return childUint(v.M, "DisplayWidth")
	}

	return v.PixelWidth()
}

func (v Video) DisplayHeight() uint64 {
	if hasChild(v.M, "DisplayHeight") {
		return childUint(v.M, "DisplayHeight")
	}

	return v.PixelHeight()
}

func (v Video) FlagInterlaced() bool { return childUint(v.M, "FlagInterlaced") != 0 }

func (v Video) String() string {
	return fmt.Sprintf("Video: dims=%dx%d, display=%dx%d",
		v.PixelWidth(), v.PixelHeight(), v.DisplayWidth(), v.DisplayHeight())
}

// Audio wraps an Audio element.
type Audio struct {
	M *element.Master
}

func (a Audio) Channels() uint64           { return childUint(a.M, "Channels") }
func (a Audio) BitDepth() uint64           { return childUint(a.M, "BitDepth") }
func (a Audio) SamplingFrequency() float64 { return childFloat(a.M, "SamplingFrequency") }

// OutputSamplingFrequency defaults to the sampling frequency when unset.
func (a Audio) OutputSamplingFrequency() float64 {
	if hasChild(a.M, "OutputSamplingFrequency") {
		return childFloat(a.M, "OutputSamplingFrequency")
	}

	return a.SamplingFrequency()
}

func (a Audio) String() string {
	return fmt.Sprintf("Audio: channels=%d sampling=%.0fk",
		a.Channels(), a.SamplingFrequency()/1000)
}

// AttachedFile wraps an AttachedFile element.
type AttachedFile struct {
	M *element.Master
}

func (f AttachedFile) Name() string        { return childText(f.M, "FileName") }
func (f AttachedFile) MimeType() string    { return childText(f.M, "FileMimeType") }
func (f AttachedFile) Description() string { return childText(f.M, "FileDescription") }
func (f AttachedFile) UID() uint64         { return childUint(f.M, "FileUID") }
func (f AttachedFile) Data() []byte        { return childBytes(f.M, "FileData") }

// DataSize returns the attachment payload size without materializing it.
func (f AttachedFile) DataSize() int64 {
	if a := lastAtomic(f.M, "FileData"); a != nil {
		return a.Size()
	}

	return 0
}

func (f AttachedFile) SetName(name string) error     { return setChildText(f.M, "FileName", name) }
func (f AttachedFile) SetMimeType(mime string) error { return setChildText(f.M, "FileMimeType", mime) }
func (f AttachedFile) SetDescription(d string) error { return setChildText(f.M, "FileDescription", d) }
func (f AttachedFile) SetData(data []byte) error     { return setChildBytes(f.M, "FileData", data) }
func (f AttachedFile) SetUID(uid uint64) error       { return setChildUint(f.M, "FileUID", uid) }

func (f AttachedFile) String() string {
	s := fmt.Sprintf("AttachedFile: %q (%s), %d bytes", f.Name(), f.MimeType(), f.DataSize())
	if d := f.Description(); d != "" {
		s += ": " + d
	}

	return s
}

// Tag wraps a Tag element (one tag group).
type Tag struct {
	M *element.Master
}

// Targets returns the Targets view, creating nothing.
func (t Tag) Targets() (Targets, bool) {
	if m := lastMaster(t.M, "Targets"); m != nil {
		return Targets{M: m}, true
	}

	return Targets{}, false
}

func (t Tag) TargetTypeValue() uint64 {
	if tg, ok := t.Targets(); ok {
		return childUint(tg.M, "TargetTypeValue")
	}

	return 50
}

// SimpleTags iterates over the group's SimpleTag children.
func (t Tag) SimpleTags() iter.Seq[SimpleTag] {
	return func(yield func(SimpleTag) bool) {
		for m := range masters(t.M, "SimpleTag") {
			if !yield(SimpleTag{M: m}) {
				return
			}
		}
	}
}

// AddSimpleTag appends a name/value pair to the group.
func (t Tag) AddSimpleTag(name, value string) (SimpleTag, error) {
	m, err := element.NewMaster(t.M.Registry(), "SimpleTag")
	if err != nil {
		return SimpleTag{}, err
	}
	t.M.AppendChild(m)
	st := SimpleTag{M: m}
	if err := setChildText(m, "TagName", name); err != nil {
		return st, err
	}
	if err := setChildText(m, "TagLanguage", "eng"); err != nil {
		return st, err
	}
	if err := setChildUint(m, "TagDefault", 1); err != nil {
		return st, err
	}

	return st, setChildText(m, "TagString", value)
}

// Targets wraps a Targets element.
type Targets struct {
	M *element.Master
}

func (t Targets) TypeValue() uint64 { return childUint(t.M, "TargetTypeValue") }
func (t Targets) Type() string      { return childText(t.M, "TargetType") }

// SimpleTag wraps a SimpleTag element.
type SimpleTag struct {
	M *element.Master
}

func (s SimpleTag) Name() string     { return childText(s.M, "TagName") }
func (s SimpleTag) Language() string { return childText(s.M, "TagLanguage") }
func (s SimpleTag) Default() bool    { return childUint(s.M, "TagDefault") != 0 }
func (s SimpleTag) Value() string    { return childText(s.M, "TagString") }

func (s SimpleTag) String() string {
	return fmt.Sprintf("SimpleTag lang=%s def=%v: %q => %q",
		s.Language(), s.Default(), s.Name(), s.Value())
}

// EditionEntry wraps an EditionEntry element of Chapters.
type EditionEntry struct {
	M *element.Master
}

func (e EditionEntry) UID() uint64       { return childUint(e.M, "EditionUID") }
func (e EditionEntry) FlagHidden() bool  { return childUint(e.M, "EditionFlagHidden") != 0 }
func (e EditionEntry) FlagDefault() bool { return childUint(e.M, "EditionFlagDefault") != 0 }
func (e EditionEntry) FlagOrdered() bool { return childUint(e.M, "EditionFlagOrdered") != 0 }

// Chapters iterates over the edition's ChapterAtom children.
func (e EditionEntry) Chapters() iter.Seq[ChapterAtom] {
	return func(yield func(ChapterAtom) bool) {
		for m := range masters(e.M, "ChapterAtom") {
			if !yield(ChapterAtom{M: m}) {
				return
			}
		}
	}
}

// ChapterAtom wraps one chapter definition.
type ChapterAtom struct {
	M *element.Master
}

func (c ChapterAtom) UID() uint64       { return childUint(c.M, "ChapterUID") }
func (c ChapterAtom) StringUID() string { return childText(c.M, "ChapterStringUID") }
func (c ChapterAtom) TimeStart() uint64 { return childUint(c.M, "ChapterTimeStart") }
func (c ChapterAtom) TimeEnd() (uint64, bool) {
	if hasChild(c.M, "ChapterTimeEnd") {
		return childUint(c.M, "ChapterTimeEnd"), true
	}

	return 0, false
}

// DisplayName returns the chapter name for the given ISO-639-2 language, or
// "" if no display matches.
func (c ChapterAtom) DisplayName(lang string) string {
	for display := range masters(c.M, "ChapterDisplay") {
		langs := make([]string, 0, 1)
		for l := range display.ChildrenNamed("ChapLanguage") {
			if a, ok := l.(*element.Atomic); ok {
				langs = append(langs, a.Text())
			}
		}
		if len(langs) == 0 {
			langs = []string{"eng"}
		}
		for _, l := range langs {
			if l == lang {
				return childText(display, "ChapString")
			}
		}
	}

	return ""
}

func (c ChapterAtom) String() string {
	return fmt.Sprintf("ChapterAtom uid=%d start=%s", c.UID(), fmtTime(c.TimeStart(), 3))
}

// fmtTime formats nanoseconds as HH:MM:SS.fff with the given number of
// decimal places.
func fmtTime(nsecs uint64, precision int) string {
	secs := nsecs / 1e9
	mins := secs / 60
	hours := mins / 60
	frac := fmt.Sprintf("%09d", nsecs%1e9)
	if precision < 9 {
		frac = frac[:precision]
	}

	return fmt.Sprintf("%02d:%02d:%02d.%s", hours, mins%60, secs%60, frac)
}
