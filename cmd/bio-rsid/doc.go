/*Command bio-rsid resolves dbSNP rsIDs to hs37d5 genomic loci using
  the MyVariant.info and Ensembl GRCh37 REST APIs.  For the standard
  chromosomes hs37d5 coordinates match GRCh37/hg19 exactly; the
  printed loci use bare chromosome names, matching tracks written by
  bio-track-prep.

  Usage: bio-rsid [flags] rsid [rsid ...]

  rsIDs are accepted with or without the leading "rs".  One line is
  printed per rsID: "rs429358: 19:45411941 (T/C)", or "rs999: not
  found" when no API knows the ID.

  Example: bio-rsid -method=auto rs429358 rs7412
*/
package main
