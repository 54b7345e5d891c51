package matroska

import (
	"encoding/binary"
	"fmt"
	"io"
	"iter"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/arloliu/ebmlkit/element"
	"github.com/arloliu/ebmlkit/encoding"
	"github.com/arloliu/ebmlkit/errs"
	"github.com/arloliu/ebmlkit/schema"
)

// Segment is the Matroska top-level element holding all media data. It
// extends the generic Master with SeekHead-guided summary reading — finding
// every metadata element without touching the Cluster regions that make up
// the bulk of the file — and with the Normalize layout pass.
type Segment struct {
	element.Master
}

var (
	_ element.Element    = (*Segment)(nil)
	_ element.Summarizer = (*Segment)(nil)
)

// Factory substitutes Segment for the generic Master when the file reader
// hits the Segment ID. Install it with element.WithFactory; Open does so
// automatically.
func Factory(hdr element.Header, def *schema.Def, reg *schema.Registry) element.Element {
	if def == nil || def.ID != schema.IDSegment {
		return nil
	}
	s := &Segment{Master: *element.NewMasterFromHeader(hdr, def, reg)}
	s.SetSelf(s)

	return s
}

// indexable are the level-1 IDs a fresh SeekHead indexes: everything except
// SeekHead itself and the Clusters.
var indexable = map[schema.ID]bool{
	schema.IDInfo:        true,
	schema.IDTracks:      true,
	schema.IDChapters:    true,
	schema.IDAttachments: true,
	schema.IDTags:        true,
	schema.IDCues:        true,
}

// frozenChild reports the level-1 elements whose byte extents Normalize
// never moves: Clusters, Cues, and the placeholder regions covering
// unparsed Cluster runs.
func frozenChild(e element.Element) bool {
	switch e.ID() {
	case schema.IDCluster, schema.IDCues:
		return true
	}
	_, isPlaceholder := e.(*element.Placeholder)

	return isPlaceholder
}

// ReadSummary finds all non-Cluster children without reading the Clusters,
// which typically hold over 99% of the file's bytes.
//
// It reads forward from the front until a Cluster appears, follows SeekHead
// entries to metadata beyond it, and keeps probing after each known element
// until nothing new turns up. Every skipped Cluster run is recorded as a
// frozen placeholder child, so layout and write passes treat the region as
// immovable without parsing it.
func (s *Segment) ReadSummary(r io.ReadSeeker) error {
	size := s.Size()
	var runStarts []int64
	isRunStart := func(pos int64) bool {
		for _, c := range runStarts {
			if c == pos {
				return true
			}
		}

		return false
	}

	pending := []int64{0}
	enqueue := func(pos int64) {
		if pos >= 0 && pos < size {
			pending = append(pending, pos)
		}
	}

	// readFrom parses elements sequentially until a Cluster header or the
	// end of the segment.
	readFrom := func(pos int64) error {
		for pos < size {
			if ch := s.ChildAt(pos); ch != nil {
				pos = ch.EndOffset()

				continue
			}
			id, ok := s.PeekChildID(r, pos)
			if !ok {
				return fmt.Errorf("%w: no element at segment offset %d",
					errs.ErrUnexpectedEOF, pos)
			}
			if id == schema.IDCluster {
				if !isRunStart(pos) {
					runStarts = append(runStarts, pos)
				}

				return nil
			}
			ch, err := s.ReadChildAt(r, pos, true)
			if err != nil {
				return err
			}
			if ch.ID() == schema.IDSeekHead {
				if sh, ok := ch.(*element.Master); ok {
					for _, sk := range seekEntries(sh) {
						if sk.TargetID() != schema.IDCluster {
							enqueue(int64(sk.Position()))
						}
					}
				}
			}
			pos = ch.EndOffset()
		}

		return nil
	}

	// A position is covered once a child starts there or it is a recorded
	// Cluster run start. Run interiors are not considered covered: a
	// SeekHead may legitimately index metadata past a Cluster run whose
	// extent is still unknown.
	covered := func(pos int64) bool {
		return s.ChildAt(pos) != nil || isRunStart(pos)
	}

	for {
		if len(pending) == 0 {
			// Probe after every known element for metadata no index entry
			// mentioned.
			progress := false
			for _, ch := range s.Children() {
				end := ch.EndOffset()
				if end < size && !covered(end) {
					enqueue(end)
					progress = true

					break
				}
			}
			if !progress {
				break
			}
		}
		sort.Slice(pending, func(i, j int) bool { return pending[i] < pending[j] })
		pos := pending[0]
		pending = pending[1:]
		if covered(pos) || pos >= size {
			continue
		}
		if err := readFrom(pos); err != nil {
			return err
		}
	}

	// Freeze the skipped Cluster runs.
	for _, run := range s.clusterRuns(size, runStarts) {
		span := run[1] - run[0]
		if span <= 0 {
			continue
		}
		p, err := element.NewPlaceholder(s.Registry(), span)
		if err != nil {
			return err
		}
		s.AddChild(p, run[0])
		p.MarkClean()
	}

	s.SetReadState(element.StateSummaryLoaded)

	return nil
}

// clusterRuns merges the recorded run starts into disjoint [start, end)
// spans bounded by the next known child or the segment end.
func (s *Segment) clusterRuns(size int64, starts []int64) [][2]int64 {
	if len(starts) == 0 {
		return nil
	}
	sorted := append([]int64(nil), starts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var runs [][2]int64
	var prevEnd int64 = -1
	for _, start := range sorted {
		if start < prevEnd || start >= size {
			continue
		}
		end := size
		for _, ch := range s.Children() {
			if ch.Offset() > start {
				end = ch.Offset()

				break
			}
		}
		runs = append(runs, [2]int64{start, end})
		prevEnd = end
	}

	return runs
}

func seekEntries(seekHead *element.Master) []Seek {
	var out []Seek
	for ch := range seekHead.ChildrenNamed("Seek") {
		if m, ok := ch.(*element.Master); ok {
			out = append(out, Seek{M: m})
		}
	}

	return out
}

// NormalizeOptions tunes the Segment layout pass.
type NormalizeOptions struct {
	// Tail lists the level-1 names preferred after the Cluster region, in
	// order. Large growable elements belong here so they can grow without
	// disturbing the pre-Cluster layout. Defaults to Attachments, Tags.
	Tail []string
	// SeekHeadSlack reserves extra Void bytes inside the SeekHead so
	// entries can be added later without relocating it. Values below the
	// 2-byte Void floor reserve nothing.
	SeekHeadSlack int64
}

func (o NormalizeOptions) withDefaults() NormalizeOptions {
	if o.Tail == nil {
		o.Tail = []string{"Attachments", "Tags"}
	}

	return o
}

// headPriority orders the metadata kept in front of the Clusters.
var headPriority = []string{"Info", "Tracks", "Chapters"}

// Normalize rearranges the segment's level-1 elements into a standard
// layout:
//
//  1. The header's size field is widened to its maximum (when the front
//     slack allows), so later growth never shifts the data region.
//  2. A fresh SeekHead indexing every non-Cluster level-1 child replaces
//     any existing ones, placed first.
//  3. Metadata is packed in front of the first Cluster in priority order;
//     whatever does not fit moves behind the last frozen region, as do the
//     configured tail elements (Attachments and Tags by default).
//  4. Gaps become Voids; the segment grows if it must. It never shrinks,
//     and no Cluster or Cues byte is ever moved.
//
// Fails with errs.ErrSegmentFull if the SeekHead itself cannot fit in the
// head region.
func (s *Segment) Normalize(opts NormalizeOptions) error {
	if st := s.ReadState(); st == element.StateUnread || st == element.StateHeaderOnly {
		return fmt.Errorf("%w: normalize of unloaded segment", errs.ErrNotLoaded)
	}
	opts = opts.withDefaults()
	rOpts := element.RearrangeOptions{Strategy: element.StrategyPreserve, Frozen: frozenChild}

	s.RemoveChildrenNamed("Void")
	s.RemoveChildrenNamed("SeekHead")

	// Settle movable masters bottom-up so their sizes are final before
	// partitioning.
	for _, ch := range s.Children() {
		if frozenChild(ch) {
			continue
		}
		if m, ok := ch.(*element.Master); ok && !m.Consistent() {
			if err := m.Rearrange(rOpts); err != nil {
				return err
			}
		}
	}

	seekHead, targets, err := s.buildSeekHead(opts.SeekHeadSlack)
	if err != nil {
		return err
	}

	s.ExpandHeader(rOpts)

	if err := s.layout(seekHead, opts); err != nil {
		return err
	}

	if err := s.Rearrange(rOpts); err != nil {
		return err
	}

	// The final offsets are settled; point the index at them.
	for seek, target := range targets {
		pos := target.Offset()
		if pos < 0 {
			pos = 0
		}
		if err := seek.SetPosition(uint64(pos)); err != nil {
			return err
		}
	}

	return nil
}

// buildSeekHead creates a fresh SeekHead with one entry per indexable
// child, 8-byte position fields reserved so later offset updates never
// resize it.
func (s *Segment) buildSeekHead(slack int64) (*element.Master, map[Seek]element.Element, error) {
	seekHead, err := element.NewMaster(s.Registry(), "SeekHead")
	if err != nil {
		return nil, nil, err
	}
	targets := make(map[Seek]element.Element)
	for _, ch := range s.Children() {
		if !indexable[ch.ID()] {
			continue
		}
		entry, err := element.NewMaster(s.Registry(), "Seek")
		if err != nil {
			return nil, nil, err
		}
		seekHead.AppendChild(entry)
		sk := Seek{M: entry}
		if err := sk.SetTargetID(ch.ID()); err != nil {
			return nil, nil, err
		}
		if err := sk.SetPosition(0); err != nil {
			return nil, nil, err
		}
		targets[sk] = ch
	}
	if err := seekHead.Rearrange(element.RearrangeOptions{Strategy: element.StrategyPreserve}); err != nil {
		return nil, nil, err
	}
	// Reserve the slack after the entries are settled, so the rearrange
	// pass above cannot reclaim it.
	if slack >= element.MinVoidSize {
		v, err := element.NewVoid(s.Registry(), slack)
		if err != nil {
			return nil, nil, err
		}
		seekHead.AppendChild(v)
		if err := seekHead.Resize(seekHead.EndLastChild()); err != nil {
			return nil, nil, err
		}
	}

	return seekHead, targets, nil
}

// layout assigns offsets: SeekHead and priority metadata packed from the
// front, tail elements behind the last frozen region, overflow spilled to
// the tail.
func (s *Segment) layout(seekHead *element.Master, opts NormalizeOptions) error {
	headEnd := int64(-1)
	tailStart := int64(0)
	for _, ch := range s.Children() {
		if frozenChild(ch) {
			if headEnd < 0 {
				headEnd = ch.Offset()
			}
			if e := ch.EndOffset(); e > tailStart {
				tailStart = e
			}
		}
	}

	tailNames := make(map[string]int, len(opts.Tail))
	for i, name := range opts.Tail {
		tailNames[name] = i + 1
	}

	var head, tail []element.Element
	head = append(head, seekHead)
	for _, name := range headPriority {
		for ch := range s.ChildrenNamed(name) {
			head = append(head, ch)
		}
	}
	inHead := func(e element.Element) bool {
		for _, h := range head {
			if h == e {
				return true
			}
		}

		return false
	}
	for _, ch := range s.Children() {
		if frozenChild(ch) || inHead(ch) {
			continue
		}
		if tailNames[ch.Name()] > 0 {
			tail = append(tail, ch)
		} else {
			head = append(head, ch)
		}
	}
	sort.SliceStable(tail, func(i, j int) bool {
		return tailNames[tail[i].Name()] < tailNames[tail[j].Name()]
	})
	if headEnd < 0 {
		// No frozen region: there is no tail, everything packs from the
		// front.
		head = append(head, tail...)
		tail = nil
	}

	s.AddChild(seekHead, 0)

	// Pack the head; spill what does not fit.
	cursor := int64(0)
	var placed []element.Element
	for _, ch := range head {
		total := ch.TotalSize()
		if headEnd >= 0 && cursor+total > headEnd {
			if ch == seekHead {
				return fmt.Errorf("%w: seek index needs %d bytes before the clusters, %d available",
					errs.ErrSegmentFull, total, headEnd-cursor)
			}
			tail = append(tail, ch)

			continue
		}
		if err := s.MoveChild(ch, cursor); err != nil {
			return err
		}
		cursor += total
		placed = append(placed, ch)
	}
	// A single byte left before the frozen boundary cannot hold a Void;
	// widen the last head element's size field over it.
	if headEnd >= 0 && headEnd-cursor == 1 && len(placed) > 0 {
		h := placed[len(placed)-1].Header()
		if err := h.SetNumBytes(h.NumBytes() + 1); err != nil {
			return fmt.Errorf("%w: 1-byte gap before the cluster region", errs.ErrCannotRearrange)
		}
	}

	// Tail region, after the last frozen child.
	cursor = tailStart
	for _, ch := range tail {
		if err := s.MoveChild(ch, cursor); err != nil {
			return err
		}
		cursor += ch.TotalSize()
	}

	return nil
}

// Infos iterates over the segment's Info children.
func (s *Segment) Infos() iter.Seq[Info] {
	return func(yield func(Info) bool) {
		for m := range masters(&s.Master, "Info") {
			if !yield(Info{M: m}) {
				return
			}
		}
	}
}

// Info returns the first Info child, creating nothing. ok is false when the
// segment has none.
func (s *Segment) Info() (Info, bool) {
	for i := range s.Infos() {
		return i, true
	}

	return Info{}, false
}

// Tracks iterates over all TrackEntry elements of all Tracks children.
func (s *Segment) Tracks() iter.Seq[TrackEntry] {
	return func(yield func(TrackEntry) bool) {
		for tracks := range masters(&s.Master, "Tracks") {
			for m := range masters(tracks, "TrackEntry") {
				if !yield(TrackEntry{M: m}) {
					return
				}
			}
		}
	}
}

// TracksByType groups the segment's tracks by type name.
func (s *Segment) TracksByType() map[string][]TrackEntry {
	out := make(map[string][]TrackEntry)
	for t := range s.Tracks() {
		out[t.TypeName()] = append(out[t.TypeName()], t)
	}

	return out
}

// Attachments iterates over all AttachedFile elements.
func (s *Segment) Attachments() iter.Seq[AttachedFile] {
	return func(yield func(AttachedFile) bool) {
		for att := range masters(&s.Master, "Attachments") {
			for m := range masters(att, "AttachedFile") {
				if !yield(AttachedFile{M: m}) {
					return
				}
			}
		}
	}
}

// AttachmentByName returns the attachment with the given file name.
func (s *Segment) AttachmentByName(name string) (AttachedFile, bool) {
	for f := range s.Attachments() {
		if f.Name() == name {
			return f, true
		}
	}

	return AttachedFile{}, false
}

// AddAttachment creates a new AttachedFile (and an Attachments container if
// needed) with a random FileUID and empty data. Adding to an attachment of
// an existing name updates its mime type and description instead.
//
// The segment is left positionally inconsistent; Normalize places the new
// element.
func (s *Segment) AddAttachment(name, mimeType, description string) (AttachedFile, error) {
	if f, ok := s.AttachmentByName(name); ok {
		if err := f.SetMimeType(mimeType); err != nil {
			return f, err
		}
		if description != "" {
			if err := f.SetDescription(description); err != nil {
				return f, err
			}
		}

		return f, nil
	}

	attachments, err := ensureMaster(&s.Master, "Attachments")
	if err != nil {
		return AttachedFile{}, err
	}
	m, err := element.NewMaster(s.Registry(), "AttachedFile")
	if err != nil {
		return AttachedFile{}, err
	}
	attachments.AppendChild(m)

	f := AttachedFile{M: m}
	if err := f.SetName(name); err != nil {
		return f, err
	}
	if err := f.SetMimeType(mimeType); err != nil {
		return f, err
	}
	if err := f.SetData(nil); err != nil {
		return f, err
	}
	u := uuid.New()
	// The schema bounds FileUID to [1, 2^63-1]: drop the top bit, avoid 0.
	uid := binary.BigEndian.Uint64(u[:8]) &^ (uint64(1) << 63)
	if uid == 0 {
		uid = 1
	}
	if err := f.SetUID(uid); err != nil {
		return f, err
	}
	if description != "" {
		if err := f.SetDescription(description); err != nil {
			return f, err
		}
	}

	return f, nil
}

// RemoveAttachment deletes the attachment with the given name, dropping an
// emptied Attachments container with it.
func (s *Segment) RemoveAttachment(name string) bool {
	for att := range masters(&s.Master, "Attachments") {
		for m := range masters(att, "AttachedFile") {
			if (AttachedFile{M: m}).Name() != name {
				continue
			}
			_ = att.RemoveChild(m)
			if lastMaster(att, "AttachedFile") == nil {
				// AttachedFile is a mandatory child.
				_ = s.RemoveChild(att)
			}

			return true
		}
	}

	return false
}

// TagGroups iterates over all Tag elements of all Tags children.
func (s *Segment) TagGroups() iter.Seq[Tag] {
	return func(yield func(Tag) bool) {
		for tags := range masters(&s.Master, "Tags") {
			for m := range masters(tags, "Tag") {
				if !yield(Tag{M: m}) {
					return
				}
			}
		}
	}
}

// Editions iterates over the EditionEntry children of the Chapters element.
func (s *Segment) Editions() iter.Seq[EditionEntry] {
	return func(yield func(EditionEntry) bool) {
		chapters := lastMaster(&s.Master, "Chapters")
		if chapters == nil {
			return
		}
		for m := range masters(chapters, "EditionEntry") {
			if !yield(EditionEntry{M: m}) {
				return
			}
		}
	}
}

// Chapters iterates over the ChapterAtom children of the first edition.
func (s *Segment) Chapters() iter.Seq[ChapterAtom] {
	return func(yield func(ChapterAtom) bool) {
		for e := range s.Editions() {
			for c := range e.Chapters() {
				if !yield(c) {
					return
				}
			}

			return
		}
	}
}

// SeekEntries returns the entries of all SeekHead children.
func (s *Segment) SeekEntries() []Seek {
	var out []Seek
	for sh := range masters(&s.Master, "SeekHead") {
		out = append(out, seekEntries(sh)...)
	}

	return out
}

// UID returns the SegmentUID from the first Info child.
func (s *Segment) UID() []byte {
	if i, ok := s.Info(); ok {
		return i.SegmentUID()
	}

	return nil
}

// TimecodeScale returns the timestamp scale in nanoseconds.
func (s *Segment) TimecodeScale() uint64 {
	if i, ok := s.Info(); ok {
		return i.TimecodeScale()
	}

	return 1000000
}

// Duration returns the segment duration in seconds, or 0 when undeclared.
func (s *Segment) Duration() float64 {
	i, ok := s.Info()
	if !ok {
		return 0
	}

	return i.Duration() * float64(s.TimecodeScale()) / 1e9
}

// Title returns the segment title, or "".
func (s *Segment) Title() string {
	for i := range s.Infos() {
		if i.HasTitle() {
			return i.Title()
		}
	}

	return ""
}

// SetTitle sets the title on the first Info child.
func (s *Segment) SetTitle(title string) error {
	i, ok := s.Info()
	if !ok {
		return fmt.Errorf("%w: Info", errs.ErrMissingRequired)
	}

	return i.SetTitle(title)
}

// MuxingApp returns the MuxingApp string of the first Info child.
func (s *Segment) MuxingApp() string {
	if i, ok := s.Info(); ok {
		return i.MuxingApp()
	}

	return ""
}

// WritingApp returns the WritingApp string of the first Info child.
func (s *Segment) WritingApp() string {
	if i, ok := s.Info(); ok {
		return i.WritingApp()
	}

	return ""
}

// Summary renders the multi-line segment overview used by File.Summary.
func (s *Segment) Summary(indent int) string {
	var sb strings.Builder
	ind := strings.Repeat(" ", indent)
	sub := strings.Repeat(" ", indent+4)
	fmt.Fprintf(&sb, "%s%s\n", ind, s.String())
	fmt.Fprintf(&sb, "%sSegment UID: %s\n", sub, encoding.HexBytes(s.UID()))
	fmt.Fprintf(&sb, "%sTitle:       %q\n", sub, s.Title())
	fmt.Fprintf(&sb, "%sDuration:    %.2f seconds\n", sub, s.Duration())
	fmt.Fprintf(&sb, "%sTime scale:  %d nanoseconds\n", sub, s.TimecodeScale())
	fmt.Fprintf(&sb, "%sMuxing app:  %q\n", sub, s.MuxingApp())
	fmt.Fprintf(&sb, "%sWriting app: %q\n", sub, s.WritingApp())

	fmt.Fprintf(&sb, "%sSeek entries:\n", sub)
	for _, sk := range s.SeekEntries() {
		name := fmt.Sprintf("[%s]", sk.TargetID())
		if def := s.Registry().Get(sk.TargetID()); def != nil {
			name = def.Name
		}
		fmt.Fprintf(&sb, "%s    %-13s %d\n", sub, name+":", sk.Position())
	}

	fmt.Fprintf(&sb, "%sAttachments:\n", sub)
	for f := range s.Attachments() {
		fmt.Fprintf(&sb, "%s    %s\n", sub, f.String())
	}
	fmt.Fprintf(&sb, "%sTracks:\n", sub)
	for t := range s.Tracks() {
		fmt.Fprintf(&sb, "%s    %s\n", sub, t.String())
	}
	fmt.Fprintf(&sb, "%sChapters:\n", sub)
	for c := range s.Chapters() {
		fmt.Fprintf(&sb, "%s    %s\n", sub, c.String())
	}

	return strings.TrimRight(sb.String(), "\n")
}
